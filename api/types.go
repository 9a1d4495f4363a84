package api

import (
	"context"

	"petcare/domain"
	"petcare/notify"
	"petcare/tracker"
)

// Tracker owns the checklist state handlers read and mutate.
type Tracker interface {
	Catalog() *domain.Catalog
	Dashboard(ctx context.Context) (tracker.Dashboard, error)
	Today(ctx context.Context) (domain.DaySnapshot, error)
	Toggle(ctx context.Context, taskID string) (domain.DaySnapshot, bool, error)
	ResetDay(ctx context.Context) (domain.DaySnapshot, error)
	Reminders(ctx context.Context) (domain.ReminderMap, error)
	UpdateReminder(ctx context.Context, taskID, hhmm string) (domain.ReminderMap, bool, error)
	History(ctx context.Context) (domain.History, error)
}

// Notifications controls the reminder scheduler.
type Notifications interface {
	State() notify.State
	Enable(ctx context.Context) (notify.Permission, error)
	Disable(ctx context.Context) error
}

// Pinger reports the health of the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}
