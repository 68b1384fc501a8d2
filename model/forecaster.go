package model

import (
	"fmt"
	"time"

	forecaster "github.com/aouyang1/go-forecaster"
	"github.com/aouyang1/go-forecaster/forecast"
)

// Weekly Fourier orders for the regression backend; enough harmonics to
// shape a weekend dip without chasing single-day noise.
const weeklyFourierOrders = 6

// Forecaster is the regression-based Fitter backed by go-forecaster:
// changepoint trend plus Fourier seasonality, with per-point
// uncertainty bounds from the residual model.
//
// Backend limits: seasonality composes additively and there is no
// yearly component, so SeasonalityMode and YearlySeasonality only take
// effect on the Holt-Winters backend.
type Forecaster struct{}

// NewForecaster returns the regression model strategy.
func NewForecaster() *Forecaster {
	return &Forecaster{}
}

// Fit trains on a gap-free daily series. The series must cover at least
// two full weekly cycles.
func (f *Forecaster) Fit(obs []Observation, opts FitOptions) (Model, error) {
	if len(obs) < 2*weeklyPeriod {
		return nil, fmt.Errorf("forecaster: need at least %d observations, got %d", 2*weeklyPeriod, len(obs))
	}

	weeklyOrders := 0
	if opts.WeeklySeasonality {
		weeklyOrders = weeklyFourierOrders
	}
	dailyOrders := 0
	if opts.DailySeasonality {
		// Only meaningful for intraday samples; harmless on daily data.
		dailyOrders = weeklyFourierOrders
	}

	fc, err := forecaster.New(&forecaster.Options{
		SeriesOptions: &forecast.Options{
			DailyOrders:  dailyOrders,
			WeeklyOrders: weeklyOrders,
			ChangepointOptions: forecast.ChangepointOptions{
				Auto:                true,
				AutoNumChangepoints: changepointBudget(opts.TrendFlexibility),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("forecaster: %w", err)
	}

	t := make([]time.Time, len(obs))
	y := make([]float64, len(obs))
	for i, o := range obs {
		t[i] = o.Date
		y[i] = o.Value
	}
	if err := fc.Fit(t, y); err != nil {
		return nil, fmt.Errorf("forecaster: fit failed: %w", err)
	}

	return &forecasterModel{fc: fc, last: obs[len(obs)-1].Date}, nil
}

// changepointBudget translates trend flexibility into the number of
// automatic changepoints the trend may bend at.
func changepointBudget(flexibility float64) int {
	if flexibility <= 0 {
		flexibility = DefaultFitOptions().TrendFlexibility
	}
	n := int(flexibility * 500)
	if n < 5 {
		n = 5
	}
	if n > 100 {
		n = 100
	}
	return n
}

type forecasterModel struct {
	fc   *forecaster.Forecaster
	last time.Time
}

// Predict projects the series horizon days past the last observation.
func (m *forecasterModel) Predict(horizon int) ([]Point, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("forecaster: horizon must be positive, got %d", horizon)
	}

	future := make([]time.Time, horizon)
	for k := 1; k <= horizon; k++ {
		future[k-1] = m.last.AddDate(0, 0, k)
	}

	res, err := m.fc.Predict(future)
	if err != nil {
		return nil, fmt.Errorf("forecaster: predict failed: %w", err)
	}
	if len(res.Forecast) != horizon || len(res.Upper) != horizon || len(res.Lower) != horizon {
		return nil, fmt.Errorf("forecaster: expected %d points, got %d", horizon, len(res.Forecast))
	}

	points := make([]Point, horizon)
	for i := range points {
		points[i] = Point{
			Date:  future[i],
			Value: res.Forecast[i],
			Lower: res.Lower[i],
			Upper: res.Upper[i],
		}
	}
	return points, nil
}
