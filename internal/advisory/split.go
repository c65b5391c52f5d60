// Package advisory derives display-only timing suggestions from demand.
// Nothing here feeds back into the phase scheduler.
package advisory

import (
	"time"

	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// DefaultCycle is the signal cycle shared between the two axes.
const DefaultCycle = 60 * time.Second

// Split is the share of a cycle given to each axis.
type Split struct {
	NorthSouth time.Duration `json:"northSouth"`
	EastWest   time.Duration `json:"eastWest"`
}

// EvenSplit halves the cycle.
func EvenSplit(cycle time.Duration) Split {
	ns := cycle / 2
	return Split{NorthSouth: ns, EastWest: cycle - ns}
}

// SplitFor divides cycle between the north-south and east-west axes in
// proportion to their demand, in whole seconds. With no demand at all the
// previous split is kept.
func SplitFor(demand phase.Demand, cycle time.Duration, previous Split) Split {
	ns := demand.Of(phase.North) + demand.Of(phase.South)
	ew := demand.Of(phase.East) + demand.Of(phase.West)
	total := ns + ew
	if total == 0 {
		return previous
	}

	secs := int(cycle / time.Second)
	nsSecs := int(float64(secs) * float64(ns) / float64(total))
	return Split{
		NorthSouth: time.Duration(nsSecs) * time.Second,
		EastWest:   time.Duration(secs-nsSecs) * time.Second,
	}
}

// Ratio returns the north-south share in [0,1].
func (s Split) Ratio() float64 {
	total := s.NorthSouth + s.EastWest
	if total == 0 {
		return 0
	}
	return float64(s.NorthSouth) / float64(total)
}
