package phase

import (
	"fmt"
	"time"
)

// Timing is the immutable configuration of a Scheduler.
type Timing struct {
	// MaxGreen is the hard cap on a phase; it always forces a switch.
	MaxGreen time.Duration

	// MinGreen is the floor below which no switch happens, whatever the demand.
	MinGreen time.Duration

	// SwitchMargin is the factor by which another direction's demand must
	// exceed the current one to take over (1.5 = at least 50% more).
	SwitchMargin float64

	// HistorySize bounds the recent green history.
	HistorySize int

	// RotationWindow is how many of the latest history entries a
	// rotation-driven switch tries to avoid. With 2 and no demand the signal
	// cycles through three directions only; 3 visits all four in turn.
	RotationWindow int

	// Initial is the direction that is green at startup.
	Initial Direction
}

// DefaultTiming returns the timings of the reference deployment.
func DefaultTiming() Timing {
	return Timing{
		MaxGreen:       90 * time.Second,
		MinGreen:       15 * time.Second,
		SwitchMargin:   1.5,
		HistorySize:    4,
		RotationWindow: 2,
		Initial:        East,
	}
}

// Validate checks the timing for internal consistency.
func (t Timing) Validate() error {
	if t.MinGreen < 0 {
		return NewConfigError("MinGreen", "must not be negative")
	}
	if t.MaxGreen <= 0 {
		return NewConfigError("MaxGreen", "must be positive")
	}
	if t.MinGreen > t.MaxGreen {
		return NewConfigError("MinGreen", fmt.Sprintf("(%s) must not exceed MaxGreen (%s)", t.MinGreen, t.MaxGreen))
	}
	if t.SwitchMargin < 1 {
		return NewConfigError("SwitchMargin", "must be at least 1")
	}
	if t.HistorySize < 1 {
		return NewConfigError("HistorySize", "must be at least 1")
	}
	if t.RotationWindow < 0 || t.RotationWindow > t.HistorySize {
		return NewConfigError("RotationWindow", fmt.Sprintf("must be between 0 and HistorySize (%d)", t.HistorySize))
	}
	if !t.Initial.Valid() {
		return NewConfigError("Initial", "must be a valid direction")
	}
	return nil
}
