package domain

import "time"

// Rollover makes sure today's snapshot belongs to the calendar date of now.
//
// A snapshot dated another day is archived under its own date, overwriting any
// earlier archive of that date, and replaced with a fresh all-incomplete
// snapshot. A nil snapshot is replaced without archiving anything. The input
// history is never modified; the returned history is a copy when it changed.
// changed reports whether anything has to be persisted. Calling Rollover again
// with the returned values and the same date is a no-op.
func Rollover(today *DaySnapshot, history History, now time.Time, catalog *Catalog) (DaySnapshot, History, bool) {
	date := DateKey(now)
	if history == nil {
		history = History{}
	}
	if today != nil && today.Date == date {
		return *today, history, false
	}
	fresh := NewDaySnapshot(date, catalog)
	if today == nil || today.Date == "" {
		return fresh, history, true
	}
	archived := history.Clone()
	archived[today.Date] = cloneStates(today.Tasks)
	return fresh, archived, true
}
