package model

import (
	"fmt"
	"math"
	"time"
)

// Smoothing constants. Alpha and gamma are fixed; the trend factor comes
// from FitOptions.TrendFlexibility. The damping factor keeps long
// horizons from extrapolating a transient slope forever.
const (
	hwAlpha   = 0.3
	hwGamma   = 0.1
	hwDamping = 0.98

	// z-score for a ~95% prediction interval.
	hwIntervalZ = 1.96

	weeklyPeriod = 7
)

// HoltWinters is the built-in Fitter: damped-trend triple exponential
// smoothing with a 7-day season and an optional day-of-year index.
type HoltWinters struct{}

// NewHoltWinters returns the built-in model strategy.
func NewHoltWinters() *HoltWinters {
	return &HoltWinters{}
}

type hwModel struct {
	mode     SeasonalityMode
	period   int
	level    float64
	trend    float64
	seasonal []float64
	// yearly[day-of-year] multiplier/offset, nil when disabled.
	yearly []float64
	sigma  float64
	last   time.Time
	// phase is the season slot of the last training observation.
	phase int
}

// Fit trains on a gap-free daily series. The series must cover at least
// two full seasonal cycles.
func (hw *HoltWinters) Fit(obs []Observation, opts FitOptions) (Model, error) {
	period := 1
	if opts.WeeklySeasonality {
		period = weeklyPeriod
	}
	if len(obs) < 2*period {
		return nil, fmt.Errorf("holt-winters: need at least %d observations, got %d", 2*period, len(obs))
	}

	mode := opts.SeasonalityMode
	if mode == "" {
		mode = SeasonalityMultiplicative
	}
	// Multiplicative decomposition is undefined on non-positive values;
	// gap-filled billing series contain zero days, so fall back.
	if mode == SeasonalityMultiplicative {
		for _, o := range obs {
			if o.Value <= 0 {
				mode = SeasonalityAdditive
				break
			}
		}
	}

	beta := opts.TrendFlexibility
	if beta <= 0 {
		beta = DefaultFitOptions().TrendFlexibility
	}
	if beta > 0.5 {
		beta = 0.5
	}

	m := &hwModel{mode: mode, period: period, last: obs[len(obs)-1].Date}
	m.init(obs)

	// One pass of damped Holt-Winters smoothing. Residuals beyond the
	// first cycle feed the prediction interval width.
	var ssr float64
	var nres int
	for t, o := range obs {
		idx := t % period
		fitted := m.oneStep(idx)
		e := o.Value - fitted
		if t >= period {
			ssr += e * e
			nres++
		}

		prevLevel := m.level
		damped := m.level + hwDamping*m.trend
		switch mode {
		case SeasonalityMultiplicative:
			m.level = hwAlpha*(o.Value/m.seasonal[idx]) + (1-hwAlpha)*damped
			m.trend = beta*(m.level-prevLevel) + (1-beta)*hwDamping*m.trend
			if m.level > 0 {
				m.seasonal[idx] = hwGamma*(o.Value/m.level) + (1-hwGamma)*m.seasonal[idx]
			}
		default:
			m.level = hwAlpha*(o.Value-m.seasonal[idx]) + (1-hwAlpha)*damped
			m.trend = beta*(m.level-prevLevel) + (1-beta)*hwDamping*m.trend
			m.seasonal[idx] = hwGamma*(o.Value-m.level) + (1-hwGamma)*m.seasonal[idx]
		}
	}
	if nres > 1 {
		m.sigma = math.Sqrt(ssr / float64(nres-1))
	}
	m.phase = (len(obs) - 1) % period

	if opts.YearlySeasonality && len(obs) >= 365 {
		m.yearly = yearlyIndex(obs, mode)
	}

	if math.IsNaN(m.level) || math.IsInf(m.level, 0) {
		return nil, fmt.Errorf("holt-winters: numerical instability, degenerate input series")
	}
	return m, nil
}

func (m *hwModel) init(obs []Observation) {
	first := cycleMean(obs[:m.period])
	second := cycleMean(obs[m.period : 2*m.period])
	m.level = first
	m.trend = (second - first) / float64(m.period)

	m.seasonal = make([]float64, m.period)
	cycles := len(obs) / m.period
	if cycles > 4 {
		cycles = 4
	}
	for i := range m.seasonal {
		var sum float64
		for c := 0; c < cycles; c++ {
			cm := cycleMean(obs[c*m.period : (c+1)*m.period])
			v := obs[c*m.period+i].Value
			if m.mode == SeasonalityMultiplicative {
				if cm > 0 {
					sum += v / cm
				} else {
					sum += 1
				}
			} else {
				sum += v - cm
			}
		}
		m.seasonal[i] = sum / float64(cycles)
	}
}

// oneStep is the in-sample one-step-ahead forecast for season slot idx.
func (m *hwModel) oneStep(idx int) float64 {
	base := m.level + hwDamping*m.trend
	if m.mode == SeasonalityMultiplicative {
		return base * m.seasonal[idx]
	}
	return base + m.seasonal[idx]
}

// Predict projects the series horizon days past the last observation.
func (m *hwModel) Predict(horizon int) ([]Point, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("holt-winters: horizon must be positive, got %d", horizon)
	}

	points := make([]Point, 0, horizon)
	dampSum := 0.0
	dampPow := 1.0
	for k := 1; k <= horizon; k++ {
		dampPow *= hwDamping
		dampSum += dampPow

		base := m.level + dampSum*m.trend
		idx := (m.phase + k) % m.period
		var val float64
		if m.mode == SeasonalityMultiplicative {
			val = base * m.seasonal[idx]
		} else {
			val = base + m.seasonal[idx]
		}

		date := m.last.AddDate(0, 0, k)
		if m.yearly != nil {
			val = m.applyYearly(val, date)
		}

		// Interval widens with horizon; a random-walk error model is
		// enough for a relative-tightness confidence score.
		width := hwIntervalZ * m.sigma * math.Sqrt(float64(k))
		points = append(points, Point{
			Date:  date,
			Value: val,
			Lower: val - width,
			Upper: val + width,
		})
	}
	return points, nil
}

func (m *hwModel) applyYearly(val float64, date time.Time) float64 {
	doy := date.YearDay() - 1
	if doy >= len(m.yearly) {
		doy = len(m.yearly) - 1
	}
	if m.mode == SeasonalityMultiplicative {
		return val * m.yearly[doy]
	}
	return val + m.yearly[doy]
}

// yearlyIndex derives a smoothed day-of-year effect relative to the
// series mean. It needs a full cycle of history to say anything useful;
// the engine only enables it at >= 365 observations.
func yearlyIndex(obs []Observation, mode SeasonalityMode) []float64 {
	var mean float64
	for _, o := range obs {
		mean += o.Value
	}
	mean /= float64(len(obs))

	const days = 366
	sums := make([]float64, days)
	counts := make([]int, days)
	for _, o := range obs {
		d := o.Date.YearDay() - 1
		if mode == SeasonalityMultiplicative {
			if mean > 0 {
				sums[d] += o.Value / mean
			}
		} else {
			sums[d] += o.Value - mean
		}
		counts[d]++
	}

	idx := make([]float64, days)
	for d := range idx {
		if counts[d] > 0 {
			idx[d] = sums[d] / float64(counts[d])
		} else if mode == SeasonalityMultiplicative {
			idx[d] = 1
		}
	}

	// 7-day moving average knocks the weekly signal out of the yearly
	// index so the two seasonalities do not double-count.
	smoothed := make([]float64, days)
	for d := range smoothed {
		var sum float64
		for o := -3; o <= 3; o++ {
			sum += idx[(d+o+days)%days]
		}
		sum /= 7
		if mode == SeasonalityMultiplicative {
			// Clamp so a sparse day-of-year bucket cannot swing a
			// projection by more than 2x.
			if sum < 0.5 {
				sum = 0.5
			}
			if sum > 2 {
				sum = 2
			}
		}
		smoothed[d] = sum
	}
	return smoothed
}

func cycleMean(obs []Observation) float64 {
	var sum float64
	for _, o := range obs {
		sum += o.Value
	}
	return sum / float64(len(obs))
}
