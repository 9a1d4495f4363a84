package tracker

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"petcare/domain"
)

const tracerName = "petcare/tracker"

// Store abstracts persistence of the four checklist entries.
type Store interface {
	LoadToday(ctx context.Context) (domain.DaySnapshot, bool, error)
	SaveToday(ctx context.Context, day domain.DaySnapshot) error
	LoadHistory(ctx context.Context) (domain.History, bool, error)
	SaveHistory(ctx context.Context, history domain.History) error
	LoadReminders(ctx context.Context) (domain.ReminderMap, bool, error)
	SaveReminders(ctx context.Context, reminders domain.ReminderMap) error
	LoadNotificationsEnabled(ctx context.Context) (bool, error)
	SaveNotificationsEnabled(ctx context.Context, enabled bool) error
}

// Options configures a Tracker. Zero values select defaults.
type Options struct {
	Catalog *domain.Catalog
	Clock   domain.Clock
	// RetentionDays caps the number of archived days; zero keeps everything.
	RetentionDays  int
	Logger         *log.Logger
	TracerProvider trace.TracerProvider
}

// Tracker owns the checklist state. Every read of today's state runs the day
// rollover first and every mutation is a single serialized
// read-modify-write against the store.
type Tracker struct {
	mu        sync.Mutex
	store     Store
	catalog   *domain.Catalog
	clock     domain.Clock
	retention int
	logger    *log.Logger
	tracer    trace.Tracer
}

// New creates a Tracker over store.
func New(store Store, opts Options) *Tracker {
	if store == nil {
		panic("tracker.New: store is nil")
	}
	t := &Tracker{
		store:     store,
		catalog:   opts.Catalog,
		clock:     opts.Clock,
		retention: opts.RetentionDays,
		logger:    opts.Logger,
	}
	if t.catalog == nil {
		t.catalog = domain.DefaultCatalog()
	}
	if t.clock == nil {
		t.clock = domain.RealClock{}
	}
	if t.retention < 0 {
		t.retention = 0
	}
	if t.logger == nil {
		t.logger = log.StandardLogger()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	t.tracer = tp.Tracer(tracerName)
	return t
}

// Catalog returns the task catalog.
func (t *Tracker) Catalog() *domain.Catalog { return t.catalog }

// Today returns today's snapshot.
func (t *Tracker) Today(ctx context.Context) (day domain.DaySnapshot, err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.today")
	defer func() { endSpan(span, err) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	day, err = t.currentDay(ctx)
	if err != nil {
		return domain.DaySnapshot{}, err
	}
	return day.Clone(), nil
}

// Toggle flips completion of a task in today's snapshot. Unknown ids are a
// no-op and report applied=false.
func (t *Tracker) Toggle(ctx context.Context, taskID string) (day domain.DaySnapshot, applied bool, err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.toggle", trace.WithAttributes(attribute.String("petcare.task_id", taskID)))
	defer func() {
		span.SetAttributes(attribute.Bool("petcare.applied", applied))
		endSpan(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	day, err = t.currentDay(ctx)
	if err != nil {
		return domain.DaySnapshot{}, false, err
	}
	if !t.catalog.Has(taskID) || !day.Toggle(taskID, t.clock.Now()) {
		t.logger.WithField("task", taskID).Debug("toggle ignored for unknown task")
		return day.Clone(), false, nil
	}
	if err = t.store.SaveToday(ctx, day); err != nil {
		return domain.DaySnapshot{}, false, fmt.Errorf("save today: %w", err)
	}
	state, _ := day.Find(taskID)
	t.logger.WithFields(log.Fields{"task": taskID, "completed": state.Completed}).Info("task toggled")
	return day.Clone(), true, nil
}

// ResetDay marks every task of today incomplete without archiving anything.
func (t *Tracker) ResetDay(ctx context.Context) (day domain.DaySnapshot, err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.reset_day")
	defer func() { endSpan(span, err) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	day, err = t.currentDay(ctx)
	if err != nil {
		return domain.DaySnapshot{}, err
	}
	day.Reset()
	if err = t.store.SaveToday(ctx, day); err != nil {
		return domain.DaySnapshot{}, fmt.Errorf("save today: %w", err)
	}
	t.logger.WithField("date", day.Date).Info("day reset")
	return day.Clone(), nil
}

// Reminders returns the reminder of every catalog task.
func (t *Tracker) Reminders(ctx context.Context) (reminders domain.ReminderMap, err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.reminders")
	defer func() { endSpan(span, err) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.reminders(ctx)
}

// UpdateReminder overwrites the reminder time of a task. The time is stored
// as given; completion state is never touched. Unknown ids are a no-op.
func (t *Tracker) UpdateReminder(ctx context.Context, taskID, hhmm string) (reminders domain.ReminderMap, applied bool, err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.update_reminder", trace.WithAttributes(
		attribute.String("petcare.task_id", taskID),
		attribute.String("petcare.reminder", hhmm),
	))
	defer func() {
		span.SetAttributes(attribute.Bool("petcare.applied", applied))
		endSpan(span, err)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	reminders, err = t.reminders(ctx)
	if err != nil {
		return nil, false, err
	}
	if !reminders.Set(taskID, hhmm, t.catalog) {
		t.logger.WithField("task", taskID).Debug("reminder update ignored for unknown task")
		return reminders, false, nil
	}
	if err = t.store.SaveReminders(ctx, reminders); err != nil {
		return nil, false, fmt.Errorf("save reminders: %w", err)
	}
	t.logger.WithFields(log.Fields{"task": taskID, "time": hhmm}).Info("reminder updated")
	return reminders.Clone(), true, nil
}

// History returns the archived days, after rolling over a stale day.
func (t *Tracker) History(ctx context.Context) (history domain.History, err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.history")
	defer func() { endSpan(span, err) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err = t.currentDay(ctx); err != nil {
		return nil, err
	}
	history, _, err = t.store.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	span.SetAttributes(attribute.Int("petcare.history_days", len(history)))
	return history, nil
}

// Checklist returns today's snapshot together with the reminder times, read
// in one step. The reminder scheduler uses it on every tick.
func (t *Tracker) Checklist(ctx context.Context) (day domain.DaySnapshot, reminders domain.ReminderMap, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	day, err = t.currentDay(ctx)
	if err != nil {
		return domain.DaySnapshot{}, nil, err
	}
	reminders, err = t.reminders(ctx)
	if err != nil {
		return domain.DaySnapshot{}, nil, err
	}
	return day.Clone(), reminders, nil
}

// NotificationsEnabled reports the persisted notification flag.
func (t *Tracker) NotificationsEnabled(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	enabled, err := t.store.LoadNotificationsEnabled(ctx)
	if err != nil {
		return false, fmt.Errorf("load notifications flag: %w", err)
	}
	return enabled, nil
}

// SetNotificationsEnabled persists the notification flag.
func (t *Tracker) SetNotificationsEnabled(ctx context.Context, enabled bool) (err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.set_notifications", trace.WithAttributes(attribute.Bool("petcare.enabled", enabled)))
	defer func() { endSpan(span, err) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err = t.store.SaveNotificationsEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("save notifications flag: %w", err)
	}
	return nil
}

// currentDay loads today's snapshot and rolls a stale one into the history.
// Callers hold t.mu.
func (t *Tracker) currentDay(ctx context.Context) (domain.DaySnapshot, error) {
	now := t.clock.Now()
	stored, ok, err := t.store.LoadToday(ctx)
	if err != nil {
		return domain.DaySnapshot{}, fmt.Errorf("load today: %w", err)
	}
	if ok && stored.Date == domain.DateKey(now) {
		return stored, nil
	}

	var prev *domain.DaySnapshot
	if ok {
		prev = &stored
	}
	history, _, err := t.store.LoadHistory(ctx)
	if err != nil {
		return domain.DaySnapshot{}, fmt.Errorf("load history: %w", err)
	}
	day, archived, _ := domain.Rollover(prev, history, now, t.catalog)

	if prev != nil {
		pruned := archived.Prune(t.retention)
		if err := t.store.SaveHistory(ctx, archived); err != nil {
			return domain.DaySnapshot{}, fmt.Errorf("save history: %w", err)
		}
		t.logger.WithFields(log.Fields{
			"archived": prev.Date,
			"today":    day.Date,
			"pruned":   pruned,
		}).Info("day rolled over")
	}
	if err := t.store.SaveToday(ctx, day); err != nil {
		return domain.DaySnapshot{}, fmt.Errorf("save today: %w", err)
	}
	return day, nil
}

// reminders loads the reminder map with catalog defaults filled in. Callers
// hold t.mu.
func (t *Tracker) reminders(ctx context.Context) (domain.ReminderMap, error) {
	stored, _, err := t.store.LoadReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reminders: %w", err)
	}
	return stored.WithDefaults(t.catalog), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
