package attempt

import (
	"fmt"
	"time"
)

// Clock abstracts wall-clock reads and timer scheduling so the countdown
// and the autosave debouncer are testable without real waits.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancelable scheduled callback.
type Timer interface {
	// Stop cancels the timer. Reports false when the callback already
	// fired or was stopped before.
	Stop() bool
}

// NewClock returns the real wall clock.
func NewClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

type realTimer struct {
	t *time.Timer
}

func (rt realTimer) Stop() bool { return rt.t.Stop() }

// FormatRemaining renders a second count as a mm:ss countdown badge.
// Hours fold into the minute field.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
