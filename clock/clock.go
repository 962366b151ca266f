package clock

import "time"

// Clock provides wall-clock time. Implementations may correct for
// local clock error (e.g. via timesync.Estimator).
type Clock interface {
	Now() time.Time
}

// Countdown is a Clock that answers questions about a target instant.
type Countdown interface {
	Clock
	TimeRemaining(target time.Time) time.Duration
	HasReached(target time.Time) bool
}

// System returns a Countdown backed by time.Now(), with no correction.
func System() Countdown { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (c systemClock) TimeRemaining(target time.Time) time.Duration { return Remaining(c, target) }

func (c systemClock) HasReached(target time.Time) bool { return Reached(c, target) }

// Remaining returns max(0, target - c.Now()).
func Remaining(c Clock, target time.Time) time.Duration {
	d := target.Sub(c.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Reached reports whether c.Now() is at or after target.
func Reached(c Clock, target time.Time) bool {
	return !c.Now().Before(target)
}
