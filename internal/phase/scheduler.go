package phase

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Reason names the clause of the switch predicate that fired.
type Reason int

const (
	ReasonNone Reason = iota
	// elapsed reached MaxGreen
	ReasonMaxGreen
	// current approach is empty while another has demand
	ReasonIdle
	// another approach exceeds current demand by the switch margin
	ReasonDemand
)

func (r Reason) String() string {
	switch r {
	case ReasonMaxGreen:
		return "max-green"
	case ReasonIdle:
		return "idle"
	case ReasonDemand:
		return "demand"
	default:
		return "none"
	}
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// State is the phase state owned by a Scheduler. Values handed out by the
// Scheduler are copies.
type State struct {
	Green      Direction
	GreenSince time.Time
	History    []Direction
}

// Decision is the outcome of one Evaluate call.
type Decision struct {
	At       time.Time
	Switched bool
	From     Direction
	To       Direction
	Reason   Reason
	// Rotation is set when the target was picked by the no-demand rotation.
	Rotation bool
	Elapsed  time.Duration
	Current  int
	// BestOther is only meaningful when BestOtherCount > 0.
	BestOther      Direction
	BestOtherCount int
}

func (d Decision) String() string {
	if !d.Switched {
		return fmt.Sprintf("hold %s (elapsed %s, count %d)", d.From, d.Elapsed, d.Current)
	}
	kind := d.Reason.String()
	if d.Rotation {
		kind += ", rotation"
	}
	return fmt.Sprintf("switch %s -> %s (%s, elapsed %s)", d.From, d.To, kind, d.Elapsed)
}

// Scheduler decides which direction holds the green signal.
// It is not safe for concurrent use; hosts serialize access.
type Scheduler struct {
	timing    Timing
	state     State
	observers []Observer
}

// NewScheduler starts a scheduler with Timing.Initial green since start.
func NewScheduler(timing Timing, start time.Time) (*Scheduler, error) {
	return NewSchedulerFromState(timing, State{Green: timing.Initial, GreenSince: start})
}

// NewSchedulerFromState resumes a scheduler from an existing state. History
// longer than the configured size keeps only its newest entries.
func NewSchedulerFromState(timing Timing, st State) (*Scheduler, error) {
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	if !st.Green.Valid() {
		return nil, NewDirectionError(st.Green.String())
	}
	for _, d := range st.History {
		if !d.Valid() {
			return nil, NewDirectionError(d.String())
		}
	}

	history := make([]Direction, 0, timing.HistorySize+1)
	history = append(history, st.History...)
	if len(history) > timing.HistorySize {
		history = history[len(history)-timing.HistorySize:]
	}

	return &Scheduler{
		timing: timing,
		state: State{
			Green:      st.Green,
			GreenSince: st.GreenSince,
			History:    history,
		},
	}, nil
}

// AddObserver registers an observer for switches and clock regressions.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

func (s *Scheduler) Timing() Timing {
	return s.timing
}

func (s *Scheduler) Current() Direction {
	return s.state.Green
}

// ElapsedInPhase returns the time since the current green started, never negative.
func (s *Scheduler) ElapsedInPhase(now time.Time) time.Duration {
	if now.Before(s.state.GreenSince) {
		return 0
	}
	return now.Sub(s.state.GreenSince)
}

// TimeRemaining returns MaxGreen minus the elapsed time. It goes negative
// once MaxGreen has passed without an Evaluate call.
func (s *Scheduler) TimeRemaining(now time.Time) time.Duration {
	return s.timing.MaxGreen - s.ElapsedInPhase(now)
}

func (s *Scheduler) History() []Direction {
	out := make([]Direction, len(s.state.History))
	copy(out, s.state.History)
	return out
}

func (s *Scheduler) Snapshot() State {
	return State{
		Green:      s.state.Green,
		GreenSince: s.state.GreenSince,
		History:    s.History(),
	}
}

// Evaluate runs one scheduling cycle at now against the given demand and
// applies the resulting switch, if any.
func (s *Scheduler) Evaluate(now time.Time, demand Demand) Decision {
	if now.Before(s.state.GreenSince) {
		s.notifyClockRegression(&ClockError{Now: now, Since: s.state.GreenSince})
	}
	elapsed := s.ElapsedInPhase(now)

	current := demand.Of(s.state.Green)
	best, bestCount := s.bestOther(demand)

	decision := Decision{
		At:             now,
		From:           s.state.Green,
		To:             s.state.Green,
		Elapsed:        elapsed,
		Current:        current,
		BestOther:      best,
		BestOtherCount: bestCount,
	}

	switch {
	case elapsed >= s.timing.MaxGreen:
		decision.Reason = ReasonMaxGreen
	case elapsed < s.timing.MinGreen:
		return decision
	case current == 0 && bestCount > 0:
		decision.Reason = ReasonIdle
	case float64(bestCount) > float64(current)*s.timing.SwitchMargin:
		decision.Reason = ReasonDemand
	default:
		return decision
	}

	target := best
	if bestCount == 0 {
		target = s.rotate()
		decision.Rotation = true
	}

	s.state.Green = target
	s.state.GreenSince = now
	s.state.History = append(s.state.History, target)
	if len(s.state.History) > s.timing.HistorySize {
		s.state.History = s.state.History[len(s.state.History)-s.timing.HistorySize:]
	}

	decision.Switched = true
	decision.To = target
	s.notifySwitch(decision)
	return decision
}

// bestOther returns the direction other than the green one with the highest
// demand. Ties go to the earliest direction; a zero count means none.
func (s *Scheduler) bestOther(demand Demand) (Direction, int) {
	best, bestCount := s.state.Green, 0
	for _, d := range Directions {
		if d == s.state.Green {
			continue
		}
		if c := demand.Of(d); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best, bestCount
}

func (s *Scheduler) rotate() Direction {
	candidates := lo.Filter(Directions[:], func(d Direction, _ int) bool {
		return d != s.state.Green
	})

	recent := s.state.History
	if len(recent) > s.timing.RotationWindow {
		recent = recent[len(recent)-s.timing.RotationWindow:]
	}

	if d, ok := lo.Find(candidates, func(d Direction) bool {
		return !lo.Contains(recent, d)
	}); ok {
		return d
	}
	return candidates[0]
}
