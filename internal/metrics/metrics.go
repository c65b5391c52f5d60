package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vvaria04/Traffic-light-Management/internal/controller"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

var (
	// Demand metrics
	metricDemandRaw = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "trafficctl",
			Name:      "demand_raw",
			Help:      "Vehicle count reported by the detector in the latest cycle",
		},
		[]string{"direction"},
	)

	metricDemandSmoothed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "trafficctl",
			Name:      "demand_smoothed",
			Help:      "Stabilized vehicle count used by the scheduler",
		},
		[]string{"direction"},
	)

	metricIntensity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "trafficctl",
			Name:      "motion_intensity",
			Help:      "Rolling mean motion intensity per direction [0,1]",
		},
		[]string{"direction"},
	)

	// Phase metrics
	metricGreen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "trafficctl",
			Name:      "green",
			Help:      "1 for the direction currently holding green, 0 otherwise",
		},
		[]string{"direction"},
	)

	metricRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trafficctl",
			Name:      "green_remaining_seconds",
			Help:      "Seconds until the max-green cap of the current phase (negative once exceeded)",
		},
	)

	metricSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trafficctl",
			Name:      "phase_switches_total",
			Help:      "Phase switches by target direction and reason",
		},
		[]string{"to", "reason"},
	)

	metricPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trafficctl",
			Name:      "phase_duration_seconds",
			Help:      "Length of completed green phases",
			Buckets:   []float64{5, 10, 15, 20, 30, 45, 60, 75, 90, 120},
		},
		[]string{"direction"},
	)

	metricClockRegressions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trafficctl",
			Name:      "clock_regressions_total",
			Help:      "Evaluations whose instant preceded the phase start",
		},
	)

	// Loop metrics
	metricCycles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trafficctl",
			Name:      "cycles",
			Help:      "Control cycles completed since start",
		},
	)

	metricSourceFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trafficctl",
			Name:      "source_failures",
			Help:      "Cycles evaluated with zero demand because the source failed",
		},
	)
)

// Observer exports scheduler events.
type Observer struct {
	phase.BaseObserver
}

func NewObserver() *Observer {
	return &Observer{}
}

func (o *Observer) OnSwitch(d phase.Decision) {
	metricSwitches.WithLabelValues(d.To.String(), d.Reason.String()).Inc()
	metricPhaseDuration.WithLabelValues(d.From.String()).Observe(d.Elapsed.Seconds())
	RecordGreen(d.To)
}

func (o *Observer) OnClockRegression(*phase.ClockError) {
	metricClockRegressions.Inc()
}

// RecordGreen marks d as the only green direction.
func RecordGreen(green phase.Direction) {
	for _, d := range phase.Directions {
		v := 0.0
		if d == green {
			v = 1
		}
		metricGreen.WithLabelValues(d.String()).Set(v)
	}
}

// RecordStatus copies a controller status into the gauges.
func RecordStatus(st controller.Status) {
	for _, d := range phase.Directions {
		name := d.String()
		metricDemandRaw.WithLabelValues(name).Set(float64(st.Raw[name]))
		metricDemandSmoothed.WithLabelValues(name).Set(float64(st.Smoothed[name]))
		metricIntensity.WithLabelValues(name).Set(st.Intensity[name])
	}
	RecordGreen(st.Green)
	metricRemaining.Set(st.RemainingSecs)
	metricCycles.Set(float64(st.Cycles))
	metricSourceFailures.Set(float64(st.Failures))
}
