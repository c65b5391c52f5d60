package advisory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

func TestSplitFor(t *testing.T) {
	prev := EvenSplit(DefaultCycle)

	tests := []struct {
		name   string
		demand phase.Demand
		ns, ew time.Duration
	}{
		{"balanced", phase.Demand{2, 2, 2, 2}, 30 * time.Second, 30 * time.Second},
		{"north-south heavy", phase.Demand{6, 3, 2, 1}, 45 * time.Second, 15 * time.Second},
		{"truncates toward east-west", phase.Demand{1, 0, 2, 0}, 20 * time.Second, 40 * time.Second},
		{"only east-west", phase.Demand{0, 0, 5, 0}, 0, 60 * time.Second},
		{"uneven thirds", phase.Demand{2, 0, 0, 1}, 40 * time.Second, 20 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitFor(tt.demand, DefaultCycle, prev)
			assert.Equal(t, tt.ns, got.NorthSouth)
			assert.Equal(t, tt.ew, got.EastWest)
			assert.Equal(t, DefaultCycle, got.NorthSouth+got.EastWest)
		})
	}
}

func TestSplitFor_NoDemandKeepsPrevious(t *testing.T) {
	prev := Split{NorthSouth: 42 * time.Second, EastWest: 18 * time.Second}

	assert.Equal(t, prev, SplitFor(phase.Demand{}, DefaultCycle, prev))
}

func TestSplit_Ratio(t *testing.T) {
	assert.InDelta(t, 0.5, EvenSplit(DefaultCycle).Ratio(), 1e-9)
	assert.Equal(t, 0.0, Split{}.Ratio())
}
