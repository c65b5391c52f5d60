// Package history keeps past demand observations in DuckDB and predicts
// typical demand for a time of day. Predictions are advisory only.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

type PredictorConfig struct {
	RecencyDecayDays int
}

func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		RecencyDecayDays: 30,
	}
}

type Prediction struct {
	Hour      int          `json:"hour"`
	DayOfWeek int          `json:"dayOfWeek"`
	Demand    phase.Demand `json:"demand"`
	Samples   int          `json:"samples"`
	Found     bool         `json:"found"`
	// Fallback is set when no sample matched the day and the prediction
	// uses the same hour on any day.
	Fallback bool `json:"fallback"`
}

type Predictor struct {
	store  *Store
	config PredictorConfig
	now    func() time.Time
}

func NewPredictor(store *Store, cfg PredictorConfig) *Predictor {
	return &Predictor{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
}

// Predict returns the recency-weighted mean demand seen at hour on
// dayOfWeek (Monday = 0).
func (p *Predictor) Predict(ctx context.Context, hour, dayOfWeek int) (Prediction, error) {
	if hour < 0 || hour > 23 {
		return Prediction{}, fmt.Errorf("hour %d out of range 0-23", hour)
	}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return Prediction{}, fmt.Errorf("day of week %d out of range 0-6", dayOfWeek)
	}

	pred := Prediction{Hour: hour, DayOfWeek: dayOfWeek}

	samples, err := p.store.samplesAt(ctx, hour, dayOfWeek)
	if err != nil {
		return Prediction{}, err
	}
	if len(samples) == 0 {
		samples, err = p.store.samplesAt(ctx, hour, -1)
		if err != nil {
			return Prediction{}, err
		}
		pred.Fallback = len(samples) > 0
	}
	if len(samples) == 0 {
		return pred, nil
	}

	now := p.now()
	var sums [phase.NumDirections]float64
	var total float64
	for _, s := range samples {
		w := p.recencyScore(now, s.RecordedAt)
		for _, d := range phase.Directions {
			sums[d] += w * float64(s.Demand[d])
		}
		total += w
	}
	for _, d := range phase.Directions {
		pred.Demand[d] = int(sums[d] / total)
	}
	pred.Samples = len(samples)
	pred.Found = true
	return pred, nil
}

// PredictAt predicts demand for the hour and weekday of t.
func (p *Predictor) PredictAt(ctx context.Context, t time.Time) (Prediction, error) {
	return p.Predict(ctx, t.Hour(), DayOfWeek(t))
}

// PredictDay returns one prediction per hour of the given day.
func (p *Predictor) PredictDay(ctx context.Context, dayOfWeek int) ([]Prediction, error) {
	out := make([]Prediction, 0, 24)
	for hour := 0; hour < 24; hour++ {
		pred, err := p.Predict(ctx, hour, dayOfWeek)
		if err != nil {
			return nil, err
		}
		out = append(out, pred)
	}
	return out, nil
}

// recencyScore weighs a sample recorded at timestamp as seen from now.
func (p *Predictor) recencyScore(now, timestamp time.Time) float64 {
	if timestamp.IsZero() {
		return 0.1
	}
	daysSince := now.Sub(timestamp).Hours() / 24
	if daysSince < 0 {
		daysSince = 0
	}

	if daysSince >= float64(p.config.RecencyDecayDays) {
		return 0.1
	}

	return 1.0 - (daysSince / float64(p.config.RecencyDecayDays) * 0.9)
}
