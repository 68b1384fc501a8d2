package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops-forecast/model"
	pkgerrors "finops-forecast/pkg/errors"
)

// stubFitter returns canned points, letting engine behavior be tested
// without a real model.
type stubFitter struct {
	points  []model.Point
	fitErr  error
	gotOpts model.FitOptions
}

func (s *stubFitter) Fit(obs []model.Observation, opts model.FitOptions) (model.Model, error) {
	s.gotOpts = opts
	if s.fitErr != nil {
		return nil, s.fitErr
	}
	return &stubModel{points: s.points}, nil
}

type stubModel struct {
	points []model.Point
}

func (s *stubModel) Predict(horizon int) ([]model.Point, error) {
	return s.points, nil
}

func testSeries(n int, cost float64) []DailyObservation {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]DailyObservation, n)
	for i := range series {
		series[i] = DailyObservation{Date: base.AddDate(0, 0, i), Cost: cost}
	}
	return series
}

func TestEngine_InsufficientDataSentinel(t *testing.T) {
	engine := NewEngine(&stubFitter{})
	now := time.Now()

	result, err := engine.Forecast(testSeries(13, 50), 30, 90, now)
	require.NoError(t, err, "sparse data is a normal condition, not a fault")

	assert.True(t, result.Insufficient())
	assert.Empty(t, result.Points)
	assert.Zero(t, result.TotalPredicted)
	assert.Zero(t, result.ModelConfidence)
	assert.Equal(t, TrendUnknown, result.Trend)
	assert.Equal(t, 30, result.ForecastDays)
	assert.Equal(t, now, result.GeneratedAt)
}

func TestEngine_ClampsNegativeModelOutput(t *testing.T) {
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	fitter := &stubFitter{points: []model.Point{
		{Date: base, Value: -5, Lower: -10, Upper: -1},
		{Date: base.AddDate(0, 0, 1), Value: 8, Lower: -2, Upper: 12},
	}}
	engine := NewEngine(fitter)

	result, err := engine.Forecast(testSeries(30, 10), 2, 30, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Points, 2)

	for _, p := range result.Points {
		assert.GreaterOrEqual(t, p.Lower, 0.0)
		assert.LessOrEqual(t, p.Lower, p.Predicted)
		assert.LessOrEqual(t, p.Predicted, p.Upper)
	}
	assert.Equal(t, 0.0, result.Points[0].Predicted)
	assert.Equal(t, 8.0, result.Points[1].Predicted)
	assert.Equal(t, 0.0, result.Points[1].Lower)
}

func TestEngine_YearlySeasonalityGatedOnHistory(t *testing.T) {
	fitter := &stubFitter{points: []model.Point{{Value: 1, Upper: 1}}}
	engine := NewEngine(fitter)

	_, err := engine.Forecast(testSeries(60, 10), 1, 180, time.Now())
	require.NoError(t, err)
	assert.False(t, fitter.gotOpts.YearlySeasonality)

	_, err = engine.Forecast(testSeries(60, 10), 1, 365, time.Now())
	require.NoError(t, err)
	assert.True(t, fitter.gotOpts.YearlySeasonality)
}

func TestEngine_WrapsFitFailure(t *testing.T) {
	engine := NewEngine(&stubFitter{fitErr: errors.New("singular matrix")})

	_, err := engine.Forecast(testSeries(30, 10), 7, 30, time.Now())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeModelFit))
}

func TestEngine_RejectsNonPositiveHorizon(t *testing.T) {
	engine := NewEngine(&stubFitter{})

	_, err := engine.Forecast(testSeries(30, 10), 0, 30, time.Now())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeInvalidInput))
}

func TestEngine_HorizonCorrectness(t *testing.T) {
	series := testSeries(60, 100)
	engine := NewEngine(model.NewHoltWinters())

	result, err := engine.Forecast(series, 30, 60, time.Now())
	require.NoError(t, err)
	require.Len(t, result.Points, 30)

	last := series[len(series)-1].Date
	for i, p := range result.Points {
		assert.Equal(t, last.AddDate(0, 0, i+1), p.Date, "point %d", i)
	}
}
