// Package detect provides demand sources: adapters that observe the
// intersection and report per-direction vehicle counts each cycle.
package detect

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/vvaria04/Traffic-light-Management/internal/occupancy"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Sample is one processing cycle worth of observations.
type Sample struct {
	Timestamp time.Time
	// Readings holds only the directions observed in this cycle.
	Readings map[phase.Direction]occupancy.Reading
}

// Counts returns the raw counts of the sample keyed by direction name.
func (s Sample) Counts() map[string]int {
	return lo.MapEntries(s.Readings, func(d phase.Direction, r occupancy.Reading) (string, int) {
		return d.String(), r.Count
	})
}

// Source produces samples at its own cadence.
type Source interface {
	// Next blocks until the next sample is available.
	//
	// Returns io.EOF once a finite source is exhausted; any other error is a
	// failed cycle and the caller may keep calling Next.
	//
	// Counts in a returned Sample are already non-negative and keyed by
	// valid directions only; adapters reject or repair bad input before
	// handing it out.
	Next(ctx context.Context) (Sample, error)

	// Close releases files or connections held by the source.
	Close() error
}
