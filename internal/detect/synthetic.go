package detect

import (
	"context"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/vvaria04/Traffic-light-Management/internal/occupancy"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

type SyntheticOptions struct {
	Seed  int64
	Start time.Time
	// Period is the simulated time between samples.
	Period time.Duration
	// Rates is the mean vehicle count per direction.
	Rates [phase.NumDirections]float64
	// Dropout is the probability that a busy direction reports zero for one cycle.
	Dropout float64
	// Cycles bounds the stream; zero means unbounded.
	Cycles int
	// Pace makes Next wait Period of wall time between samples.
	Pace bool
}

func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Seed:    1,
		Period:  time.Second,
		Rates:   [phase.NumDirections]float64{4, 3, 6, 1},
		Dropout: 0.1,
	}
}

// SyntheticSource draws Poisson-distributed counts for demos and soak tests.
type SyntheticSource struct {
	opts SyntheticOptions
	rng  *rand.Rand
	n    int
}

func NewSyntheticSource(opts SyntheticOptions) *SyntheticSource {
	if opts.Period <= 0 {
		opts.Period = time.Second
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	return &SyntheticSource{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
}

func (s *SyntheticSource) Next(ctx context.Context) (Sample, error) {
	if s.opts.Cycles > 0 && s.n >= s.opts.Cycles {
		return Sample{}, io.EOF
	}
	if s.opts.Pace && s.n > 0 {
		timer := time.NewTimer(s.opts.Period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Sample{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	readings := make(map[phase.Direction]occupancy.Reading, phase.NumDirections)
	for _, d := range phase.Directions {
		rate := s.opts.Rates[d]
		count := s.poisson(rate)
		// stationary queues keep the region bright even when blobs merge
		intensity := math.Min(1, rate/20+float64(count)/40)
		if count > 0 && s.rng.Float64() < s.opts.Dropout {
			count = 0
		}
		readings[d] = occupancy.Reading{Count: count, Intensity: intensity}
	}

	ts := s.opts.Start.Add(time.Duration(s.n) * s.opts.Period)
	s.n++
	return Sample{Timestamp: ts, Readings: readings}, nil
}

func (s *SyntheticSource) Close() error {
	return nil
}

// poisson uses Knuth's method; rates here are small.
func (s *SyntheticSource) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= s.rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}
