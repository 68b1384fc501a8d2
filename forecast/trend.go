package forecast

// trendWindow is how many trailing historical days feed the recent
// average, and trendBandPct is the noise gate: day-to-day billing
// fluctuation should not be reported as a trend.
const (
	trendWindow  = 30
	trendBandPct = 5.0
)

// ClassifyTrend compares the forecast average against the recent
// historical average. With a zero recent base there is no meaningful
// percentage change, so any positive forecast counts as increasing.
func ClassifyTrend(history []DailyObservation, points []Point) Trend {
	if len(history) == 0 || len(points) == 0 {
		return TrendUnknown
	}

	recent := history
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	var recentSum float64
	for _, o := range recent {
		recentSum += o.Cost
	}
	recentAvg := recentSum / float64(len(recent))

	var forecastSum float64
	for _, p := range points {
		forecastSum += p.Predicted
	}
	forecastAvg := forecastSum / float64(len(points))

	if recentAvg == 0 {
		if forecastAvg > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	pctChange := (forecastAvg - recentAvg) / recentAvg * 100
	switch {
	case pctChange > trendBandPct:
		return TrendIncreasing
	case pctChange < -trendBandPct:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
