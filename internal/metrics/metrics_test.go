package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/vvaria04/Traffic-light-Management/internal/controller"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

func TestObserver_OnSwitch(t *testing.T) {
	o := NewObserver()
	before := testutil.ToFloat64(metricSwitches.WithLabelValues("north", "demand"))

	o.OnSwitch(phase.Decision{Switched: true, From: phase.East, To: phase.North, Reason: phase.ReasonDemand, Elapsed: 20 * time.Second})

	assert.Equal(t, before+1, testutil.ToFloat64(metricSwitches.WithLabelValues("north", "demand")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metricGreen.WithLabelValues("north")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metricGreen.WithLabelValues("east")))
}

func TestObserver_OnClockRegression(t *testing.T) {
	before := testutil.ToFloat64(metricClockRegressions)

	NewObserver().OnClockRegression(&phase.ClockError{})

	assert.Equal(t, before+1, testutil.ToFloat64(metricClockRegressions))
}

func TestRecordStatus(t *testing.T) {
	RecordStatus(controller.Status{
		Green:         phase.West,
		RemainingSecs: -4,
		Raw:           map[string]int{"north": 3},
		Smoothed:      map[string]int{"north": 5, "west": 1},
		Intensity:     map[string]float64{"south": 0.25},
		Cycles:        12,
		Failures:      2,
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(metricDemandRaw.WithLabelValues("north")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metricDemandSmoothed.WithLabelValues("north")))
	assert.Equal(t, 0.25, testutil.ToFloat64(metricIntensity.WithLabelValues("south")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metricGreen.WithLabelValues("west")))
	assert.Equal(t, -4.0, testutil.ToFloat64(metricRemaining))
	assert.Equal(t, 12.0, testutil.ToFloat64(metricCycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(metricSourceFailures))
}
