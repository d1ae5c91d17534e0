package pricing

import "time"

// Night runs from 22:00 until 05:00 local time.
const (
	nightStartHour = 22
	nightEndHour   = 5
)

// IsNightAt reports whether t falls in [22:00, 24:00) or [00:00, 05:00) in t's location.
func IsNightAt(t time.Time) bool {
	h := t.Hour()
	return h >= nightStartHour || h < nightEndHour
}

// Clock samples wall-clock time in a fixed location.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a clock in loc; nil means time.Local.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{loc: loc, now: time.Now}
}

// WithNow replaces the time source, mostly for tests.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	return &Clock{loc: c.loc, now: now}
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Clock) IsNight() bool {
	return IsNightAt(c.Now())
}
