// Package occupancy turns raw per-cycle vehicle counts into a stabilized
// demand signal that survives short detection dropouts.
package occupancy

import (
	"math"

	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

type Config struct {
	// IntensityThreshold is the rolling mean intensity above which a zero
	// count is treated as a missed detection.
	IntensityThreshold float64
}

func DefaultConfig() Config {
	return Config{
		IntensityThreshold: 0.1,
	}
}

// Reading is one detector observation for a direction.
type Reading struct {
	Count int `json:"count"`
	// Intensity is the fraction of the region showing motion, in [0,1].
	Intensity float64 `json:"intensity"`
}

type track struct {
	history  ring
	reported int
}

// Filter holds the smoothing state of every direction. It is not safe for
// concurrent use.
type Filter struct {
	config Config
	tracks [phase.NumDirections]track
}

func NewFilter(config Config) *Filter {
	return &Filter{config: config}
}

// Update records a reading for d and returns the stabilized count.
//
// A zero count is replaced by the previously reported count while the
// rolling mean intensity, including this reading, stays above the
// threshold.
func (f *Filter) Update(d phase.Direction, r Reading) int {
	if !d.Valid() {
		return 0
	}
	t := &f.tracks[d]

	t.history.push(clamp01(r.Intensity))

	count := r.Count
	if count < 0 {
		count = 0
	}
	if count == 0 && t.history.mean() > f.config.IntensityThreshold {
		count = t.reported
	}
	t.reported = count
	return count
}

// UpdateAll updates every direction in enumeration order.
func (f *Filter) UpdateAll(readings [phase.NumDirections]Reading) phase.Demand {
	var dm phase.Demand
	for _, d := range phase.Directions {
		dm[d] = f.Update(d, readings[d])
	}
	return dm
}

// Mean returns the rolling mean intensity of d.
func (f *Filter) Mean(d phase.Direction) float64 {
	if !d.Valid() {
		return 0
	}
	return f.tracks[d].history.mean()
}

// Reported returns the last stabilized count of d.
func (f *Filter) Reported(d phase.Direction) int {
	if !d.Valid() {
		return 0
	}
	return f.tracks[d].reported
}

// Intensities returns the buffered intensities of d, oldest first.
func (f *Filter) Intensities(d phase.Direction) []float64 {
	if !d.Valid() {
		return nil
	}
	return f.tracks[d].history.values()
}

func (f *Filter) Reset() {
	for i := range f.tracks {
		f.tracks[i].history.reset()
		f.tracks[i].reported = 0
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
