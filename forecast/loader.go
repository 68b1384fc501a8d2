package forecast

import (
	"context"
	"fmt"
	"time"

	"finops-forecast/billing"
	"finops-forecast/pkg/errors"
)

// SeriesLoader turns irregular billing export rows into a complete,
// ordered daily series suitable for model fitting.
type SeriesLoader struct {
	source billing.Source
	now    func() time.Time
}

// NewSeriesLoader wraps a billing source. The clock is injectable for
// tests; production uses time.Now.
func NewSeriesLoader(source billing.Source, now func() time.Time) *SeriesLoader {
	if now == nil {
		now = time.Now
	}
	return &SeriesLoader{source: source, now: now}
}

// Load fetches daily costs over [today - historicalDays, today] and
// reindexes them to one observation per calendar day, inserting zero-cost
// days for gaps. The result has exactly historicalDays+1 observations in
// ascending date order, or is empty when the source has no rows at all
// for the window.
func (l *SeriesLoader) Load(ctx context.Context, historicalDays int, projectID, serviceName string) ([]DailyObservation, error) {
	if historicalDays <= 0 {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("historical days must be positive, got %d", historicalDays))
	}

	end := dateOnly(l.now().UTC())
	start := end.AddDate(0, 0, -historicalDays)

	rows, err := l.source.QueryDailyCosts(ctx, billing.CostQuery{
		Start:       start,
		End:         end,
		ProjectID:   projectID,
		ServiceName: serviceName,
	})
	if err != nil {
		scope := serviceName
		if scope == "" {
			scope = "global"
		}
		window := fmt.Sprintf("%s..%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
		return nil, errors.NewDataSourceError(scope, window, err)
	}

	// No rows at all means no billing data for the window; hand back an
	// empty series so the engine reports insufficient data instead of
	// fitting a fabricated flat-zero history.
	if len(rows) == 0 {
		return []DailyObservation{}, nil
	}

	byDate := make(map[time.Time]float64, len(rows))
	for _, row := range rows {
		byDate[dateOnly(row.Date.UTC())] = row.TotalCost.InexactFloat64()
	}

	series := make([]DailyObservation, 0, historicalDays+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		series = append(series, DailyObservation{Date: d, Cost: byDate[d]})
	}
	return series, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
