package countdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/tnicklin/birthday_countdown/clock"
)

const (
	day = 24 * time.Hour

	// finalHour is when the display starts refreshing faster.
	finalHour = time.Hour

	normalRefresh = time.Second
	finalRefresh  = 250 * time.Millisecond
)

// Phase is what the display should show.
type Phase int

const (
	PhaseCountdown Phase = iota
	PhaseCelebration
)

func (p Phase) String() string {
	if p == PhaseCelebration {
		return "celebration"
	}
	return "countdown"
}

// Parts is a remaining duration split into display units.
type Parts struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// Split breaks remaining into whole days, hours, minutes and seconds.
// Negative input is treated as zero.
func Split(remaining time.Duration) Parts {
	if remaining <= 0 {
		return Parts{}
	}
	return Parts{
		Days:    int64(remaining / day),
		Hours:   int64(remaining % day / time.Hour),
		Minutes: int64(remaining % time.Hour / time.Minute),
		Seconds: int64(remaining % time.Minute / time.Second),
	}
}

// Digits returns each unit zero-padded to two digits.
func (p Parts) Digits() [4]string {
	return [4]string{
		fmt.Sprintf("%02d", p.Days),
		fmt.Sprintf("%02d", p.Hours),
		fmt.Sprintf("%02d", p.Minutes),
		fmt.Sprintf("%02d", p.Seconds),
	}
}

// Humanize renders remaining as "2 days, 0 hours, 5 minutes, 1 second".
// A unit is shown once it or any larger unit is non-zero; seconds always are.
func Humanize(remaining time.Duration) string {
	p := Split(remaining)

	var parts []string
	if p.Days > 0 {
		parts = append(parts, plural(p.Days, "day"))
	}
	if p.Days > 0 || p.Hours > 0 {
		parts = append(parts, plural(p.Hours, "hour"))
	}
	if p.Days > 0 || p.Hours > 0 || p.Minutes > 0 {
		parts = append(parts, plural(p.Minutes, "minute"))
	}
	parts = append(parts, plural(p.Seconds, "second"))
	return strings.Join(parts, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// PhaseAt reports the phase for target according to c.
func PhaseAt(c clock.Countdown, target time.Time) Phase {
	if c.HasReached(target) {
		return PhaseCelebration
	}
	return PhaseCountdown
}

// RefreshInterval is how often the display should redraw.
func RefreshInterval(remaining time.Duration) time.Duration {
	if remaining > 0 && remaining < finalHour {
		return finalRefresh
	}
	return normalRefresh
}
