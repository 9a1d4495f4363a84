package tracker

import (
	"context"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"petcare/domain"
	"petcare/storage"
)

type fixture struct {
	tracker *Tracker
	store   *storage.Storage
	clock   *domain.FakeClock
	mr      *miniredis.Miniredis
	hook    *test.Hook
}

func newFixture(t *testing.T, start time.Time, opts Options) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := storage.New(storage.NewRedisKV(client), "petcare:")
	t.Cleanup(func() { _ = store.Close() })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	clock := domain.NewFakeClock(start)
	opts.Clock = clock
	opts.Logger = logger
	return &fixture{
		tracker: New(store, opts),
		store:   store,
		clock:   clock,
		mr:      mr,
		hook:    hook,
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.UTC)
}

func TestTodayCreatesAndPersistsFreshSnapshot(t *testing.T) {
	f := newFixture(t, at(5, 7, 0), Options{})
	ctx := context.Background()

	day, err := f.tracker.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if day.Date != "2024-01-05" || len(day.Tasks) != domain.DefaultCatalog().Len() {
		t.Fatalf("unexpected snapshot %#v", day)
	}
	stored, ok, err := f.store.LoadToday(ctx)
	if err != nil || !ok {
		t.Fatalf("expected snapshot to be persisted, ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(stored, day) {
		t.Fatalf("persisted snapshot differs: %#v", stored)
	}
	if f.mr.Exists("petcare:" + storage.HistoryKey) {
		t.Fatalf("nothing should be archived on first use")
	}
}

func TestRolloverArchivesPreviousDay(t *testing.T) {
	f := newFixture(t, at(4, 8, 0), Options{})
	ctx := context.Background()

	if _, applied, err := f.tracker.Toggle(ctx, "breakfast"); err != nil || !applied {
		t.Fatalf("toggle: applied=%v err=%v", applied, err)
	}
	yesterday, err := f.tracker.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}

	f.clock.Set(at(5, 6, 30))
	today, err := f.tracker.Today(ctx)
	if err != nil {
		t.Fatalf("today after midnight: %v", err)
	}
	if today.Date != "2024-01-05" {
		t.Fatalf("expected new date, got %q", today.Date)
	}
	if p := domain.DayProgress(today); p.Completed != 0 {
		t.Fatalf("expected fresh day, got %d completed", p.Completed)
	}

	history, err := f.tracker.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !reflect.DeepEqual(history["2024-01-04"], yesterday.Tasks) {
		t.Fatalf("archived day differs:\n got %#v\nwant %#v", history["2024-01-04"], yesterday.Tasks)
	}

	entry := f.hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected log entries")
	}
	found := false
	for _, e := range f.hook.AllEntries() {
		if e.Message == "day rolled over" && e.Data["archived"] == "2024-01-04" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected rollover to be logged")
	}
}

func TestRolloverTwiceSameDayIsNoop(t *testing.T) {
	f := newFixture(t, at(4, 20, 0), Options{})
	ctx := context.Background()
	if _, err := f.tracker.Today(ctx); err != nil {
		t.Fatalf("today: %v", err)
	}
	f.clock.Set(at(5, 9, 0))

	first, err := f.tracker.Today(ctx)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	h1, _ := f.tracker.History(ctx)
	second, err := f.tracker.Today(ctx)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	h2, _ := f.tracker.History(ctx)

	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(h1, h2) {
		t.Fatalf("second rollover changed state")
	}
	if len(h2) != 1 {
		t.Fatalf("expected one archived day, got %d", len(h2))
	}
}

func TestToggleRoundTripRestoresState(t *testing.T) {
	f := newFixture(t, at(5, 8, 0), Options{})
	ctx := context.Background()
	before, _ := f.tracker.Today(ctx)

	day, _, err := f.tracker.Toggle(ctx, "dinner")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	st, _ := day.Find("dinner")
	if !st.Completed || st.CompletedAt == nil || !st.CompletedAt.Equal(at(5, 8, 0)) {
		t.Fatalf("unexpected state after first toggle %#v", st)
	}

	f.clock.Advance(time.Minute)
	after, _, err := f.tracker.Toggle(ctx, "dinner")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("round trip differs:\n got %#v\nwant %#v", after, before)
	}
}

func TestToggleUnknownTaskIsSilentNoop(t *testing.T) {
	f := newFixture(t, at(5, 8, 0), Options{})
	ctx := context.Background()
	before, _ := f.tracker.Today(ctx)

	day, applied, err := f.tracker.Toggle(ctx, "feed-the-fish")
	if err != nil {
		t.Fatalf("unknown id must not error: %v", err)
	}
	if applied {
		t.Fatalf("unknown id must not apply")
	}
	if !reflect.DeepEqual(before, day) {
		t.Fatalf("snapshot changed")
	}
}

func TestUpdateReminderLeavesCompletionAlone(t *testing.T) {
	f := newFixture(t, at(5, 8, 0), Options{})
	ctx := context.Background()
	if _, _, err := f.tracker.Toggle(ctx, "breakfast"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	before, _ := f.tracker.Today(ctx)

	reminders, applied, err := f.tracker.UpdateReminder(ctx, "breakfast", "07:45")
	if err != nil || !applied {
		t.Fatalf("update reminder: applied=%v err=%v", applied, err)
	}
	if reminders["breakfast"] != "07:45" || reminders["dinner"] != "18:00" {
		t.Fatalf("unexpected reminders %#v", reminders)
	}
	after, _ := f.tracker.Today(ctx)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("reminder update changed completion state")
	}

	stored, ok, _ := f.store.LoadReminders(ctx)
	if !ok || stored["breakfast"] != "07:45" {
		t.Fatalf("expected reminder to be persisted, got %#v", stored)
	}

	if _, applied, err := f.tracker.UpdateReminder(ctx, "unknown", "10:00"); err != nil || applied {
		t.Fatalf("unknown id: applied=%v err=%v", applied, err)
	}
}

func TestResetDayClearsCompletion(t *testing.T) {
	f := newFixture(t, at(5, 8, 0), Options{})
	ctx := context.Background()
	f.tracker.Toggle(ctx, "breakfast")
	f.tracker.Toggle(ctx, "snacks")

	day, err := f.tracker.ResetDay(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p := domain.DayProgress(day); p.Completed != 0 {
		t.Fatalf("expected nothing completed, got %d", p.Completed)
	}
	history, _ := f.tracker.History(ctx)
	if len(history) != 0 {
		t.Fatalf("reset must not archive, got %v", history)
	}
}

func TestRetentionPrunesOldestDays(t *testing.T) {
	f := newFixture(t, at(1, 9, 0), Options{RetentionDays: 3})
	ctx := context.Background()
	for d := 1; d <= 6; d++ {
		f.clock.Set(at(d, 9, 0))
		if _, err := f.tracker.Today(ctx); err != nil {
			t.Fatalf("today %d: %v", d, err)
		}
	}

	history, err := f.tracker.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{"2024-01-05", "2024-01-04", "2024-01-03"}
	if got := history.DatesDesc(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected archived dates %v, want %v", got, want)
	}
}

func TestCorruptTodayRegeneratesDefaults(t *testing.T) {
	f := newFixture(t, at(5, 8, 0), Options{})
	if err := f.mr.Set("petcare:"+storage.TodayKey, "garbage"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	day, err := f.tracker.Today(context.Background())
	if err != nil {
		t.Fatalf("corrupt state must not fail: %v", err)
	}
	if day.Date != "2024-01-05" || domain.DayProgress(day).Completed != 0 {
		t.Fatalf("expected defaults, got %#v", day)
	}
}

func TestDashboardDerivedMetrics(t *testing.T) {
	f := newFixture(t, at(4, 7, 0), Options{})
	ctx := context.Background()
	for _, def := range domain.DefaultCatalog().Tasks() {
		if def.ID == "breakfast" {
			continue
		}
		if _, _, err := f.tracker.Toggle(ctx, def.ID); err != nil {
			t.Fatalf("toggle %s: %v", def.ID, err)
		}
	}
	f.clock.Set(at(5, 7, 0))

	dash, err := f.tracker.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Wellbeing != 85 || dash.WellbeingPercent != 85 {
		t.Fatalf("expected wellbeing 85, got %v", dash.Wellbeing)
	}
	if dash.Status.Text != "Doing well" {
		t.Fatalf("unexpected status %#v", dash.Status)
	}
	if len(dash.Missed) != 1 || dash.Missed[0].TaskID != "breakfast" || dash.Missed[0].Date != "2024-01-04" {
		t.Fatalf("unexpected missed list %#v", dash.Missed)
	}
	if dash.Streaks["breakfast"] != 0 || dash.Streaks["dinner"] != 1 {
		t.Fatalf("unexpected streaks %#v", dash.Streaks)
	}
	if dash.Progress.Total != 7 || dash.Progress.Completed != 0 {
		t.Fatalf("unexpected progress %#v", dash.Progress)
	}
	if len(dash.Tasks) != 7 || dash.Tasks[0].ID != "breakfast" || dash.Tasks[0].Reminder != "08:00" {
		t.Fatalf("unexpected task views %#v", dash.Tasks)
	}
	if dash.DisplayDate != "Friday, January 5, 2024" {
		t.Fatalf("unexpected display date %q", dash.DisplayDate)
	}
}

func TestNotificationsFlagRoundTrip(t *testing.T) {
	f := newFixture(t, at(5, 8, 0), Options{})
	ctx := context.Background()

	if enabled, err := f.tracker.NotificationsEnabled(ctx); err != nil || enabled {
		t.Fatalf("expected disabled default, enabled=%v err=%v", enabled, err)
	}
	if err := f.tracker.SetNotificationsEnabled(ctx, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if enabled, err := f.tracker.NotificationsEnabled(ctx); err != nil || !enabled {
		t.Fatalf("expected enabled, enabled=%v err=%v", enabled, err)
	}
}

func TestOperationsAreTraced(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, at(5, 8, 0), Options{TracerProvider: tp})
	if _, _, err := f.tracker.Toggle(context.Background(), "omega3"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "tracker.toggle" {
		t.Fatalf("unexpected span name %s", span.Name)
	}
	attrs := attributesToMap(span.Attributes)
	if attrs["petcare.task_id"] != "omega3" || attrs["petcare.applied"] != true {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
	if span.Status.Code != codes.Ok {
		t.Fatalf("expected ok status, got %v", span.Status.Code)
	}
}

func TestStoreFailureIsRecordedOnSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, at(5, 8, 0), Options{TracerProvider: tp})
	f.mr.SetError("READONLY")

	if _, err := f.tracker.Today(context.Background()); err == nil {
		t.Fatalf("expected store error")
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("expected one errored span, got %#v", spans)
	}
}

func attributesToMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}
