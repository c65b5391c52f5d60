package phase

import (
	"fmt"
	"time"

	"k8s.io/klog/v2"
)

// Observer receives scheduler events. Calls happen synchronously inside
// Evaluate, on the caller's goroutine.
type Observer interface {
	// OnSwitch is called after a switch has been applied
	OnSwitch(d Decision)

	// OnClockRegression is called when Evaluate sees an instant earlier than
	// the phase start; elapsed time has been clamped to zero
	OnClockRegression(err *ClockError)
}

// BaseObserver provides no-op methods for embedding
type BaseObserver struct{}

func (BaseObserver) OnSwitch(Decision) {}

func (BaseObserver) OnClockRegression(*ClockError) {}

// LoggingObserver writes scheduler events to klog
type LoggingObserver struct {
	BaseObserver
}

func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{}
}

func (o *LoggingObserver) OnSwitch(d Decision) {
	klog.InfoS("Phase switched",
		"from", d.From.String(),
		"to", d.To.String(),
		"reason", d.Reason.String(),
		"rotation", d.Rotation,
		"elapsed", d.Elapsed.Round(time.Millisecond).String(),
		"current", d.Current,
		"bestOther", d.BestOtherCount,
	)
}

func (o *LoggingObserver) OnClockRegression(err *ClockError) {
	klog.ErrorS(err, "Clock moved backwards, elapsed clamped to zero")
}

func (s *Scheduler) notifySwitch(d Decision) {
	for _, o := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					klog.ErrorS(fmt.Errorf("%v", r), "Observer panicked in OnSwitch")
				}
			}()
			o.OnSwitch(d)
		}()
	}
}

func (s *Scheduler) notifyClockRegression(err *ClockError) {
	for _, o := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					klog.ErrorS(fmt.Errorf("%v", r), "Observer panicked in OnClockRegression")
				}
			}()
			o.OnClockRegression(err)
		}()
	}
}
