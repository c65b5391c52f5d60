// Package controller runs the control loop: it pulls samples from a demand
// source, smooths them and lets the phase scheduler decide.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/vvaria04/Traffic-light-Management/internal/detect"
	"github.com/vvaria04/Traffic-light-Management/internal/occupancy"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Recorder persists smoothed demand for the time-of-day history.
type Recorder interface {
	Record(ctx context.Context, at time.Time, demand phase.Demand) error
}

type Config struct {
	Timing phase.Timing
	Filter occupancy.Config
	// RecordEvery writes every n-th cycle to the Recorder; zero disables recording.
	RecordEvery int
}

type Option func(*Controller)

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock replaces the wall clock used for failed cycles and liveness.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithObserver(o phase.Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// Controller owns the filter and the scheduler. All state is guarded by a
// single mutex; the source is read outside of it.
type Controller struct {
	id          uuid.UUID
	source      detect.Source
	recorder    Recorder
	recordEvery int
	clock       func() time.Time
	observers   []phase.Observer

	mu           sync.Mutex
	filter       *occupancy.Filter
	scheduler    *phase.Scheduler
	raw          phase.Demand
	smoothed     phase.Demand
	intensity    [phase.NumDirections]float64
	lastDecision phase.Decision
	lastAt       time.Time
	lastCycle    time.Time
	// shift moves source timestamps onto the loop timeline after a failed
	// cycle ran ahead of the source.
	shift        time.Duration
	started      time.Time
	cycles       int64
	failures     int64
	recordErrs   int64
	lastErr      error
}

// New creates a controller whose first green phase starts at start.
func New(cfg Config, source detect.Source, start time.Time, opts ...Option) (*Controller, error) {
	scheduler, err := phase.NewScheduler(cfg.Timing, start)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	c := &Controller{
		id:          uuid.New(),
		source:      source,
		recordEvery: cfg.RecordEvery,
		clock:       time.Now,
		filter:      occupancy.NewFilter(cfg.Filter),
		scheduler:   scheduler,
		lastAt:      start,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, o := range c.observers {
		scheduler.AddObserver(o)
	}
	c.started = c.clock()
	return c, nil
}

func (c *Controller) RunID() string {
	return c.id.String()
}

// Step runs one cycle. A failing source yields a zero-demand cycle so the
// max-green cap keeps rotating the signal. The returned error is io.EOF
// when the source is exhausted or the context error when cancelled.
func (c *Controller) Step(ctx context.Context) (phase.Decision, error) {
	sample, err := c.source.Next(ctx)
	switch {
	case errors.Is(err, io.EOF):
		return phase.Decision{}, io.EOF
	case ctx.Err() != nil:
		return phase.Decision{}, ctx.Err()
	case err != nil:
		return c.failedCycle(err), nil
	}

	c.mu.Lock()
	decision := c.evaluate(sample)
	record := c.shouldRecord()
	smoothed, at := c.smoothed, c.lastAt
	c.mu.Unlock()

	if record {
		c.record(ctx, at, smoothed)
	}
	return decision, nil
}

func (c *Controller) evaluate(sample detect.Sample) phase.Decision {
	var (
		readings [phase.NumDirections]occupancy.Reading
		observed [phase.NumDirections]bool
		seen     int
	)
	for d, r := range sample.Readings {
		if !d.Valid() {
			continue
		}
		readings[d], observed[d] = r, true
		seen++
	}

	if seen == phase.NumDirections {
		c.smoothed = c.filter.UpdateAll(readings)
	}
	for _, d := range phase.Directions {
		if !observed[d] {
			// unobserved directions keep their last stabilized count
			continue
		}
		c.raw[d] = readings[d].Count
		if seen < phase.NumDirections {
			c.smoothed[d] = c.filter.Update(d, readings[d])
		}
	}
	for _, d := range phase.Directions {
		c.intensity[d] = c.filter.Mean(d)
	}

	at := c.sampleTime(sample.Timestamp)
	decision := c.scheduler.Evaluate(at, c.smoothed)
	c.afterCycle(at, decision)
	return decision
}

func (c *Controller) failedCycle(err error) phase.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.lastErr = err
	klog.ErrorS(err, "Demand source failed, substituting zero demand", "run", c.id, "failures", c.failures)

	// failed cycles stay on the loop timeline, not the wall clock
	at := c.now()
	if at.Before(c.lastAt) {
		at = c.lastAt
	}
	c.raw = phase.Demand{}
	c.smoothed = phase.Demand{}
	decision := c.scheduler.Evaluate(at, phase.Demand{})
	c.afterCycle(at, decision)
	return decision
}

// sampleTime places a source timestamp on the loop timeline. The loop never
// goes back: a sample behind the last evaluated instant grows the shift.
func (c *Controller) sampleTime(ts time.Time) time.Time {
	if ts.IsZero() {
		ts = c.clock()
	}
	at := ts.Add(c.shift)
	if at.Before(c.lastAt) {
		c.shift += c.lastAt.Sub(at)
		klog.V(2).InfoS("Source timeline behind the loop, shifting samples", "run", c.id,
			"sample", ts, "lastEvaluated", c.lastAt, "shift", c.shift)
		at = c.lastAt
	}
	return at
}

func (c *Controller) afterCycle(at time.Time, decision phase.Decision) {
	c.cycles++
	c.lastAt = at
	c.lastCycle = c.clock()
	c.lastDecision = decision
	klog.V(3).InfoS("Cycle evaluated", "cycle", c.cycles, "decision", decision.String(), "demand", c.smoothed.Map())
}

func (c *Controller) shouldRecord() bool {
	return c.recorder != nil && c.recordEvery > 0 && c.cycles%int64(c.recordEvery) == 0
}

func (c *Controller) record(ctx context.Context, at time.Time, demand phase.Demand) {
	if err := c.recorder.Record(ctx, at, demand); err != nil {
		klog.ErrorS(err, "Failed to record demand sample", "run", c.id)
		c.mu.Lock()
		c.recordErrs++
		c.mu.Unlock()
	}
}

// Run steps the loop until the context is cancelled or the source is
// exhausted. A zero interval runs cycles back to back.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	klog.InfoS("Starting control loop", "run", c.id, "interval", interval, "green", c.Current().String())

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		_, err := c.Step(ctx)
		switch {
		case errors.Is(err, io.EOF):
			klog.InfoS("Demand source exhausted", "run", c.id, "cycles", c.Cycles())
			return nil
		case ctx.Err() != nil:
			klog.InfoS("Control loop stopped", "run", c.id, "cycles", c.Cycles())
			return nil
		case err != nil:
			return fmt.Errorf("control loop failed: %w", err)
		}

		if tick == nil {
			continue
		}
		select {
		case <-ctx.Done():
			klog.InfoS("Control loop stopped", "run", c.id, "cycles", c.Cycles())
			return nil
		case <-tick:
		}
	}
}

func (c *Controller) Current() phase.Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler.Current()
}

func (c *Controller) Cycles() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// Smoothed returns the demand used in the latest cycle.
func (c *Controller) Smoothed() phase.Demand {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.smoothed
}

// Alive reports whether a cycle completed within staleAfter. Before the
// first cycle the loop counts as alive.
func (c *Controller) Alive(staleAfter time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycles == 0 {
		return true
	}
	return c.clock().Sub(c.lastCycle) <= staleAfter
}
