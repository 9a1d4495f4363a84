package domain

import (
	"sort"
	"time"
)

// DateLayout is the calendar date key used for snapshots and history.
const DateLayout = "2006-01-02"

// DateKey formats the calendar date of t in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// TaskState is the completion state of one task on one day.
type TaskState struct {
	TaskID      string     `json:"id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

// DaySnapshot holds every task state for a single calendar date.
type DaySnapshot struct {
	Date  string      `json:"date"`
	Tasks []TaskState `json:"tasks"`
}

// NewDaySnapshot returns a snapshot for date with every catalog task incomplete.
func NewDaySnapshot(date string, catalog *Catalog) DaySnapshot {
	tasks := make([]TaskState, 0, catalog.Len())
	for _, def := range catalog.tasks {
		tasks = append(tasks, TaskState{TaskID: def.ID})
	}
	return DaySnapshot{Date: date, Tasks: tasks}
}

// Clone returns a deep copy so archived snapshots never alias today's.
func (d DaySnapshot) Clone() DaySnapshot {
	return DaySnapshot{Date: d.Date, Tasks: cloneStates(d.Tasks)}
}

// Find returns the state of taskID.
func (d DaySnapshot) Find(taskID string) (TaskState, bool) {
	return findState(d.Tasks, taskID)
}

// Toggle flips completion of taskID. CompletedAt is set to now when the task
// becomes complete and cleared when it is reopened. Unknown ids leave the
// snapshot untouched and return false.
func (d *DaySnapshot) Toggle(taskID string, now time.Time) bool {
	for i := range d.Tasks {
		t := &d.Tasks[i]
		if t.TaskID != taskID {
			continue
		}
		if t.Completed {
			t.Completed = false
			t.CompletedAt = nil
		} else {
			at := now
			t.Completed = true
			t.CompletedAt = &at
		}
		return true
	}
	return false
}

// Reset marks every task incomplete, keeping the date.
func (d *DaySnapshot) Reset() {
	for i := range d.Tasks {
		d.Tasks[i].Completed = false
		d.Tasks[i].CompletedAt = nil
	}
}

// History maps archived dates to the task states recorded on that date.
type History map[string][]TaskState

// Clone returns a deep copy.
func (h History) Clone() History {
	out := make(History, len(h))
	for date, tasks := range h {
		out[date] = cloneStates(tasks)
	}
	return out
}

// ValidDate reports whether date is a canonical "YYYY-MM-DD" key.
func ValidDate(date string) bool {
	t, err := time.Parse(DateLayout, date)
	return err == nil && t.Format(DateLayout) == date
}

// DropInvalidDates removes keys that are not calendar dates and returns them
// sorted.
func (h History) DropInvalidDates() []string {
	var dropped []string
	for date := range h {
		if !ValidDate(date) {
			dropped = append(dropped, date)
			delete(h, date)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// DatesDesc returns archived dates, most recent first. Keys that are not
// calendar dates are skipped.
func (h History) DatesDesc() []string {
	dates := make([]string, 0, len(h))
	for date := range h {
		if ValidDate(date) {
			dates = append(dates, date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// Recent returns at most n dates, most recent first.
func (h History) Recent(n int) []string {
	dates := h.DatesDesc()
	if n >= 0 && len(dates) > n {
		dates = dates[:n]
	}
	return dates
}

// Prune drops keys that are not calendar dates, then the oldest dates so at
// most keep remain. A keep of zero or less disables the age limit. It returns
// the number of keys removed.
func (h History) Prune(keep int) int {
	removed := len(h.DropInvalidDates())
	if keep <= 0 || len(h) <= keep {
		return removed
	}
	dates := h.DatesDesc()
	for _, date := range dates[keep:] {
		delete(h, date)
		removed++
	}
	return removed
}

// ReminderMap maps task ids to "HH:MM" reminder times.
type ReminderMap map[string]string

// DefaultReminders builds a reminder map from catalog defaults.
func DefaultReminders(catalog *Catalog) ReminderMap {
	out := make(ReminderMap, catalog.Len())
	for _, def := range catalog.tasks {
		out[def.ID] = def.DefaultReminderTime
	}
	return out
}

// WithDefaults returns a copy of r where every catalog task without an entry
// gets its default reminder time.
func (r ReminderMap) WithDefaults(catalog *Catalog) ReminderMap {
	out := DefaultReminders(catalog)
	for id, hhmm := range r {
		out[id] = hhmm
	}
	return out
}

// ReminderFor returns the configured reminder of taskID, falling back to the
// catalog default.
func (r ReminderMap) ReminderFor(taskID string, catalog *Catalog) (string, bool) {
	if hhmm, ok := r[taskID]; ok {
		return hhmm, true
	}
	if def, ok := catalog.Lookup(taskID); ok {
		return def.DefaultReminderTime, true
	}
	return "", false
}

// Set overwrites the reminder of a catalog task. The time string is stored as
// given. Unknown ids are ignored.
func (r ReminderMap) Set(taskID, hhmm string, catalog *Catalog) bool {
	if !catalog.Has(taskID) {
		return false
	}
	r[taskID] = hhmm
	return true
}

// Clone returns a copy.
func (r ReminderMap) Clone() ReminderMap {
	out := make(ReminderMap, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func cloneStates(tasks []TaskState) []TaskState {
	if tasks == nil {
		return nil
	}
	out := make([]TaskState, len(tasks))
	for i, t := range tasks {
		out[i] = t
		if t.CompletedAt != nil {
			at := *t.CompletedAt
			out[i].CompletedAt = &at
		}
	}
	return out
}
