package domain

import (
	"sync"
	"time"
)

// Clock is the host clock: completion timestamps, the calendar date and
// reminder matching all read it.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// InLocation reports the wrapped clock's time in loc, so every date and
// HH:MM comparison uses one consistent day boundary.
func InLocation(c Clock, loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return locationClock{base: c, loc: loc}
}

type locationClock struct {
	base Clock
	loc  *time.Location
}

func (c locationClock) Now() time.Time { return c.base.Now().In(c.loc) }

// FakeClock is deterministic and test-friendly.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
