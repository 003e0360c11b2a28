package resource

import "time"

// TimeLayout is the wire format of Time attributes: no fractional seconds and
// no zone designator.
const TimeLayout = "2006-01-02T15:04:05"

// Clock supplies the current time for item timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Option configures a Resource.
type Option func(*Resource)

// WithClock sets the clock used for lastSet and lastChanged.
func WithClock(c Clock) Option {
	return func(r *Resource) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLocation sets the zone used to render and parse Time attributes other
// than state/lastupdated, which is always UTC.
func WithLocation(loc *time.Location) Option {
	return func(r *Resource) {
		if loc != nil {
			r.loc = loc
		}
	}
}
