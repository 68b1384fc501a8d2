package forecast

import (
	"fmt"
	"time"

	"finops-forecast/model"
	"finops-forecast/pkg/errors"
)

// MinObservations is the smallest series the engine will fit. Two weeks
// covers two full weekly cycles; anything less yields the
// insufficient-data sentinel rather than an error.
const MinObservations = 14

// Engine fits the configured model strategy to a daily series and
// projects it forward. Stateless; safe for concurrent use.
type Engine struct {
	fitter model.Fitter
	opts   model.FitOptions
}

// NewEngine creates an engine around a model strategy with the billing
// policy defaults.
func NewEngine(fitter model.Fitter) *Engine {
	return &Engine{fitter: fitter, opts: model.DefaultFitOptions()}
}

// NewEngineWithOptions overrides the seasonality policy, e.g. for
// deployments where additive seasonality fits the billing pattern better.
func NewEngineWithOptions(fitter model.Fitter, opts model.FitOptions) *Engine {
	return &Engine{fitter: fitter, opts: opts}
}

// Forecast fits the series and projects forecastDays future points
// starting the day after the last observation. historicalDays gates
// yearly seasonality: below a full cycle there are not enough years to
// estimate it.
func (e *Engine) Forecast(series []DailyObservation, forecastDays, historicalDays int, now time.Time) (*Result, error) {
	if forecastDays <= 0 {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("forecast days must be positive, got %d", forecastDays))
	}

	if len(series) < MinObservations {
		return &Result{
			Points:          []Point{},
			TotalPredicted:  0,
			ForecastDays:    forecastDays,
			ModelConfidence: 0,
			Trend:           TrendUnknown,
			GeneratedAt:     now,
		}, nil
	}

	opts := e.opts
	// Yearly seasonality needs at least one full cycle of history.
	opts.YearlySeasonality = historicalDays >= 365

	obs := make([]model.Observation, len(series))
	for i, s := range series {
		obs[i] = model.Observation{Date: s.Date, Value: s.Cost}
	}

	fitted, err := e.fitter.Fit(obs, opts)
	if err != nil {
		return nil, errors.NewModelFitError("", err)
	}
	raw, err := fitted.Predict(forecastDays)
	if err != nil {
		return nil, errors.NewModelFitError("", err)
	}

	points := make([]Point, len(raw))
	var total float64
	for i, p := range raw {
		points[i] = clampPoint(p)
		total += points[i].Predicted
	}

	return &Result{
		Points:          points,
		TotalPredicted:  total,
		ForecastDays:    forecastDays,
		ModelConfidence: Confidence(points),
		Trend:           ClassifyTrend(series, points),
		GeneratedAt:     now,
	}, nil
}

// clampPoint forces non-negative costs, then re-establishes
// lower <= predicted <= upper, which independent clamping can invert.
func clampPoint(p model.Point) Point {
	pred := clampZero(p.Value)
	lower := clampZero(p.Lower)
	upper := clampZero(p.Upper)
	if lower > pred {
		lower = pred
	}
	if upper < pred {
		upper = pred
	}
	return Point{Date: p.Date, Predicted: pred, Lower: lower, Upper: upper}
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
