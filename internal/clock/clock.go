package clock

import "time"

// Clock supplies site-local time to services, so tests can pin the instant.
type Clock interface {
	Now() time.Time
}

type siteClock struct {
	loc *time.Location
}

// NewSite returns a clock backed by time.Now in the given location. Decision
// timestamps and "today" comparisons both run in site-local time.
func NewSite(loc *time.Location) Clock {
	return siteClock{loc: loc}
}

func (c siteClock) Now() time.Time {
	return time.Now().In(c.loc)
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always reports the same instant (for tests).
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t}
}

func (c fixedClock) Now() time.Time {
	return c.now
}
