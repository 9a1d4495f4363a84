package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WellbeingWindow is the number of archived days considered by the wellbeing
// score and the missed task listing.
const WellbeingWindow = 7

const (
	maxScore = 100.0
	minScore = 0.0
)

// Streak counts the most recent consecutive archived days on which taskID was
// completed. Today's in-progress snapshot is never part of the history, so it
// never counts. The streak ends at the first day the task is missing or
// incomplete, or at a calendar gap between archived dates.
func Streak(history History, taskID string) int {
	streak := 0
	var prev time.Time
	for i, date := range history.DatesDesc() {
		day, err := time.Parse(DateLayout, date)
		if err != nil {
			break
		}
		if i > 0 && !day.Equal(prev.AddDate(0, 0, -1)) {
			break
		}
		state, ok := findState(history[date], taskID)
		if !ok || !state.Completed {
			break
		}
		streak++
		prev = day
	}
	return streak
}

// Streaks computes the streak of every catalog task.
func Streaks(history History, catalog *Catalog) map[string]int {
	out := make(map[string]int, catalog.Len())
	for _, def := range catalog.tasks {
		out[def.ID] = Streak(history, def.ID)
	}
	return out
}

// Wellbeing scores the pet's care on a 0-100 scale.
//
// Every incomplete task of the WellbeingWindow most recent archived days costs
// the absolute value of its catalog penalty. Incomplete tasks of today whose
// reminder time has already passed cost half of it. Tasks that are no longer in
// the catalog are skipped.
func Wellbeing(history History, today DaySnapshot, reminders ReminderMap, now time.Time, catalog *Catalog) float64 {
	score := maxScore
	for _, date := range history.Recent(WellbeingWindow) {
		for _, state := range history[date] {
			if state.Completed {
				continue
			}
			def, ok := catalog.Lookup(state.TaskID)
			if !ok {
				continue
			}
			score -= penalty(def)
		}
	}
	for _, state := range today.Tasks {
		if state.Completed {
			continue
		}
		def, ok := catalog.Lookup(state.TaskID)
		if !ok {
			continue
		}
		hhmm, _ := reminders.ReminderFor(state.TaskID, catalog)
		due, ok := ReminderAt(now, hhmm)
		if !ok {
			continue
		}
		if now.After(due) {
			score -= penalty(def) / 2
		}
	}
	return math.Max(minScore, math.Min(maxScore, score))
}

func penalty(def TaskDefinition) float64 {
	return math.Abs(float64(def.Impact.HealthScorePenalty))
}

// MissedTask is an incomplete task of an archived day.
type MissedTask struct {
	Date   string `json:"date"`
	TaskID string `json:"id"`
	Name   string `json:"name,omitempty"`
	Glyph  string `json:"emoji,omitempty"`
	// Consequence is empty when the task left the catalog.
	Consequence string `json:"consequence,omitempty"`
}

// MissedTasks lists every incomplete task of the WellbeingWindow most recent
// archived days, most recent date first and catalog order within a date. The
// same task appears once per day it was missed.
func MissedTasks(history History, catalog *Catalog) []MissedTask {
	missed := []MissedTask{}
	for _, date := range history.Recent(WellbeingWindow) {
		states := cloneStates(history[date])
		sort.SliceStable(states, func(i, j int) bool {
			return catalogRank(catalog, states[i].TaskID) < catalogRank(catalog, states[j].TaskID)
		})
		for _, state := range states {
			if state.Completed {
				continue
			}
			m := MissedTask{Date: date, TaskID: state.TaskID}
			if def, ok := catalog.Lookup(state.TaskID); ok {
				m.Name = def.Name
				m.Glyph = def.Glyph
				m.Consequence = def.Impact.Consequence
			}
			missed = append(missed, m)
		}
	}
	return missed
}

// catalogRank sorts unknown tasks after every catalog task.
func catalogRank(catalog *Catalog, id string) int {
	if pos := catalog.position(id); pos >= 0 {
		return pos
	}
	return catalog.Len()
}

// Status is the display bucket of a wellbeing score.
type Status struct {
	Text  string `json:"text"`
	Color string `json:"color"`
	Glyph string `json:"emoji"`
	Photo string `json:"photo"`
}

// WellbeingStatus maps a score to its display bucket.
func WellbeingStatus(score float64) Status {
	switch {
	case score >= 90:
		return Status{Text: "Thriving!", Color: "#00b894", Glyph: "😸", Photo: "happy"}
	case score >= 70:
		return Status{Text: "Doing well", Color: "#74b9ff", Glyph: "🙂", Photo: "happy"}
	case score >= 50:
		return Status{Text: "Needs attention", Color: "#fdcb6e", Glyph: "😿", Photo: "okay"}
	default:
		return Status{Text: "Urgent care needed!", Color: "#e17055", Glyph: "🙀", Photo: "sad"}
	}
}

// Progress summarizes today's completion.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// DayProgress counts completed tasks of a snapshot.
func DayProgress(day DaySnapshot) Progress {
	p := Progress{Total: len(day.Tasks)}
	for _, t := range day.Tasks {
		if t.Completed {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// ParseReminder splits an "HH:MM" string. Single digit hours are accepted.
func ParseReminder(hhmm string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// ValidReminder reports whether hhmm is a zero padded 24-hour "HH:MM" time.
func ValidReminder(hhmm string) bool {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if hhmm[i] < '0' || hhmm[i] > '9' {
			return false
		}
	}
	_, _, ok := ParseReminder(hhmm)
	return ok
}

// ReminderAt returns the instant hhmm falls on the calendar day of now.
func ReminderAt(now time.Time, hhmm string) (time.Time, bool) {
	hour, minute, ok := ParseReminder(hhmm)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), true
}

// ReminderDue reports whether hhmm names the wall-clock minute of now.
func ReminderDue(now time.Time, hhmm string) bool {
	hour, minute, ok := ParseReminder(hhmm)
	return ok && now.Hour() == hour && now.Minute() == minute
}

func findState(tasks []TaskState, taskID string) (TaskState, bool) {
	for _, t := range tasks {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return TaskState{}, false
}
