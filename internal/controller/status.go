package controller

import (
	"time"

	"github.com/samber/lo"

	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Status is a read-only view of the loop for presentation.
type Status struct {
	RunID         string             `json:"runId"`
	Green         phase.Direction    `json:"green"`
	GreenSince    time.Time          `json:"greenSince"`
	Now           time.Time          `json:"now"`
	Elapsed       string             `json:"elapsed"`
	Remaining     string             `json:"remaining"`
	RemainingSecs float64            `json:"remainingSeconds"`
	Raw           map[string]int     `json:"raw"`
	Smoothed      map[string]int     `json:"smoothed"`
	Intensity     map[string]float64 `json:"intensity"`
	History       []phase.Direction  `json:"history"`
	LastDecision  string             `json:"lastDecision,omitempty"`
	LastReason    phase.Reason       `json:"lastReason"`
	Cycles        int64              `json:"cycles"`
	Failures      int64              `json:"failures"`
	RecordErrors  int64              `json:"recordErrors"`
	LastError     string             `json:"lastError,omitempty"`
	StartTime     time.Time          `json:"startTime"`
	Uptime        string             `json:"uptime"`
}

// Status returns the view at the loop's current instant: the last evaluated
// instant advanced by the wall time since that cycle. For live sources this
// is the wall clock; for replays it follows the trace timeline.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusAt(c.now())
}

// StatusAt returns the view at an explicit instant.
func (c *Controller) StatusAt(now time.Time) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusAt(now)
}

func (c *Controller) now() time.Time {
	wall := c.clock()
	if c.cycles == 0 {
		return c.lastAt.Add(wall.Sub(c.started))
	}
	return c.lastAt.Add(wall.Sub(c.lastCycle))
}

func (c *Controller) statusAt(now time.Time) Status {
	snap := c.scheduler.Snapshot()
	remaining := c.scheduler.TimeRemaining(now)

	st := Status{
		RunID:         c.id.String(),
		Green:         snap.Green,
		GreenSince:    snap.GreenSince,
		Now:           now,
		Elapsed:       c.scheduler.ElapsedInPhase(now).Round(time.Second).String(),
		Remaining:     remaining.Round(time.Second).String(),
		RemainingSecs: remaining.Seconds(),
		Raw:           c.raw.Map(),
		Smoothed:      c.smoothed.Map(),
		Intensity: lo.SliceToMap(phase.Directions[:], func(d phase.Direction) (string, float64) {
			return d.String(), c.intensity[d]
		}),
		History:      snap.History,
		LastReason:   c.lastDecision.Reason,
		Cycles:       c.cycles,
		Failures:     c.failures,
		RecordErrors: c.recordErrs,
		StartTime:    c.started,
		Uptime:       c.clock().Sub(c.started).Round(time.Second).String(),
	}
	if c.cycles > 0 {
		st.LastDecision = c.lastDecision.String()
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}
