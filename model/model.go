// Package model defines the time-series model strategy used by the
// forecast engine. The engine only depends on Fitter/Model, so the
// built-in Holt-Winters implementation can be swapped for any
// trend+seasonality library without touching the pipeline.
package model

import (
	"fmt"
	"time"
)

// SeasonalityMode controls how seasonal effects compose with the trend.
type SeasonalityMode string

const (
	// SeasonalityMultiplicative scales seasonal effects with trend
	// magnitude. Cloud spend seasonality (weekend dip) is a percentage
	// effect, so this is the default.
	SeasonalityMultiplicative SeasonalityMode = "multiplicative"
	SeasonalityAdditive       SeasonalityMode = "additive"
)

// FitOptions carries the modeling policy. These are configuration, not
// code: deployments that prefer additive seasonality change the options,
// not the engine.
type FitOptions struct {
	SeasonalityMode   SeasonalityMode
	WeeklySeasonality bool
	YearlySeasonality bool
	DailySeasonality  bool
	// TrendFlexibility controls how quickly the trend reacts to level
	// changes. Kept low so single-day billing spikes do not bend the
	// projection.
	TrendFlexibility float64
}

// DefaultFitOptions returns the billing-data policy: multiplicative
// seasonality, weekly on, daily off, yearly off, conservative trend.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		SeasonalityMode:   SeasonalityMultiplicative,
		WeeklySeasonality: true,
		YearlySeasonality: false,
		DailySeasonality:  false,
		TrendFlexibility:  0.05,
	}
}

// Observation is one training sample.
type Observation struct {
	Date  time.Time
	Value float64
}

// Point is one projected future day with uncertainty bounds. Values are
// raw model output; non-negativity clamping is the engine's job.
type Point struct {
	Date  time.Time
	Value float64
	Lower float64
	Upper float64
}

// Fitter fits a model to a complete daily series.
type Fitter interface {
	Fit(obs []Observation, opts FitOptions) (Model, error)
}

// Model projects the fitted series forward.
type Model interface {
	// Predict returns exactly horizon points, one per day, starting the
	// day after the last training observation.
	Predict(horizon int) ([]Point, error)
}

// NewFitter returns the named fitting backend. Empty selects the
// regression forecaster; holtwinters is the fallback for deployments
// that need multiplicative or yearly seasonality.
func NewFitter(name string) (Fitter, error) {
	switch name {
	case "", "forecaster":
		return NewForecaster(), nil
	case "holtwinters":
		return NewHoltWinters(), nil
	default:
		return nil, fmt.Errorf("unknown model %q (expected forecaster or holtwinters)", name)
	}
}
