package tracker

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"petcare/domain"
)

const displayDateLayout = "Monday, January 2, 2006"

// TaskView joins a catalog entry with today's state and derived values.
type TaskView struct {
	domain.TaskDefinition
	CategoryInfo    domain.CategoryInfo `json:"categoryInfo"`
	ImportanceColor string              `json:"importanceColor"`
	Completed       bool                `json:"completed"`
	CompletedAt     *time.Time          `json:"completedAt"`
	Reminder        string              `json:"reminder"`
	Streak          int                 `json:"streak"`
}

// Dashboard is everything the rendering surface displays.
type Dashboard struct {
	Date                 string                                  `json:"date"`
	DisplayDate          string                                  `json:"displayDate"`
	Tasks                []TaskView                              `json:"tasks"`
	Categories           map[domain.Category]domain.CategoryInfo `json:"categories"`
	Today                domain.DaySnapshot                      `json:"today"`
	History              domain.History                          `json:"history"`
	Reminders            domain.ReminderMap                      `json:"reminders"`
	Wellbeing            float64                                 `json:"wellbeing"`
	WellbeingPercent     int                                     `json:"wellbeingPercent"`
	Status               domain.Status                           `json:"status"`
	Streaks              map[string]int                          `json:"streaks"`
	Missed               []domain.MissedTask                     `json:"missed"`
	Progress             domain.Progress                         `json:"progress"`
	NotificationsEnabled bool                                    `json:"notificationsEnabled"`
}

// Dashboard computes the derived metrics over the current state. It has no
// side effects beyond the day rollover every read performs.
func (t *Tracker) Dashboard(ctx context.Context) (dash Dashboard, err error) {
	ctx, span := t.tracer.Start(ctx, "tracker.dashboard")
	defer func() { endSpan(span, err) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	day, err := t.currentDay(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	history, _, err := t.store.LoadHistory(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load history: %w", err)
	}
	reminders, err := t.reminders(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	enabled, err := t.store.LoadNotificationsEnabled(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load notifications flag: %w", err)
	}

	now := t.clock.Now()
	dash = Build(t.catalog, day, history, reminders, now)
	dash.NotificationsEnabled = enabled

	span.SetAttributes(
		attribute.Float64("petcare.wellbeing", dash.Wellbeing),
		attribute.Int("petcare.missed", len(dash.Missed)),
		attribute.Int("petcare.completed", dash.Progress.Completed),
	)
	return dash, nil
}

// Build assembles a dashboard from explicit state.
func Build(catalog *domain.Catalog, day domain.DaySnapshot, history domain.History, reminders domain.ReminderMap, now time.Time) Dashboard {
	if history == nil {
		history = domain.History{}
	}
	score := domain.Wellbeing(history, day, reminders, now, catalog)
	streaks := domain.Streaks(history, catalog)

	tasks := make([]TaskView, 0, catalog.Len())
	for _, def := range catalog.Tasks() {
		state, _ := day.Find(def.ID)
		reminder, _ := reminders.ReminderFor(def.ID, catalog)
		tasks = append(tasks, TaskView{
			TaskDefinition:  def,
			CategoryInfo:    def.Category.Info(),
			ImportanceColor: def.Importance.Color(),
			Completed:       state.Completed,
			CompletedAt:     state.CompletedAt,
			Reminder:        reminder,
			Streak:          streaks[def.ID],
		})
	}

	return Dashboard{
		Date:             day.Date,
		DisplayDate:      now.Format(displayDateLayout),
		Tasks:            tasks,
		Categories:       domain.Categories(),
		Today:            day.Clone(),
		History:          history,
		Reminders:        reminders,
		Wellbeing:        score,
		WellbeingPercent: int(math.Round(score)),
		Status:           domain.WellbeingStatus(score),
		Streaks:          streaks,
		Missed:           domain.MissedTasks(history, catalog),
		Progress:         domain.DayProgress(day),
	}
}
