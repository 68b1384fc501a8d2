// Package forecast implements the cost forecasting and trend engine:
// gap-filled daily series loading, model fitting and projection with
// uncertainty bounds, trend classification, budget alert thresholds, and
// a TTL cache around the expensive fit.
package forecast

import (
	"encoding/json"
	"time"
)

// Trend is the coarse direction of forecasted spend relative to recent
// actuals.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUnknown    Trend = "unknown"
)

// DailyObservation is one day of historical spend. A loaded series has
// exactly one observation per calendar day, ascending, gap-filled with
// zero cost.
type DailyObservation struct {
	Date time.Time
	Cost float64
}

// Point is a single forecasted day. Invariant after clamping:
// 0 <= Lower <= Predicted <= Upper.
type Point struct {
	Date      time.Time
	Predicted float64
	Lower     float64
	Upper     float64
}

// MarshalJSON emits the date as a calendar day, matching the billing
// export granularity.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date      string  `json:"date"`
		Predicted float64 `json:"predicted_cost"`
		Lower     float64 `json:"lower_bound"`
		Upper     float64 `json:"upper_bound"`
	}{
		Date:      p.Date.Format("2006-01-02"),
		Predicted: p.Predicted,
		Lower:     p.Lower,
		Upper:     p.Upper,
	})
}

// Result is an immutable forecast. Callers own the returned value and
// must not mutate it; the cache hands the same pointer to every caller
// within a TTL window.
type Result struct {
	Points          []Point   `json:"forecast_points"`
	TotalPredicted  float64   `json:"total_predicted_cost"`
	ForecastDays    int       `json:"forecast_days"`
	ModelConfidence float64   `json:"model_confidence"`
	Trend           Trend     `json:"trend"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Insufficient reports whether this result is the insufficient-data
// sentinel (fewer than MinObservations historical days were available).
// It is a normal outcome for new billing accounts or narrow filters,
// not a fault.
func (r *Result) Insufficient() bool {
	return len(r.Points) == 0
}
