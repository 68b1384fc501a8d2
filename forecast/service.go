package forecast

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finops-forecast/billing"
	"finops-forecast/model"
	"finops-forecast/pkg/errors"
	"finops-forecast/pkg/metrics"
)

// Default horizons for threshold advice: a 30-day budget window sized
// from roughly six months of history.
const (
	DefaultThresholdForecastDays   = 30
	DefaultThresholdHistoricalDays = 180
)

// Request selects the forecast scope and horizons.
type Request struct {
	ForecastDays   int
	HistoricalDays int
	ProjectID      string
	// ForceRefresh bypasses the cache read but still writes through.
	ForceRefresh bool
}

// Service is the cache-aware facade over the forecasting pipeline.
// Loader, engine, and classifiers are stateless; the cache is the only
// shared mutable state and is owned here, not held as a package global.
type Service struct {
	loader  *SeriesLoader
	engine  *Engine
	cache   *Cache
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*serviceConfig)

type serviceConfig struct {
	ttl     time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
	opts    *model.FitOptions
}

// WithCacheTTL overrides the forecast cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) { c.ttl = ttl }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithLogger attaches a zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *serviceConfig) { c.log = log }
}

// WithClock injects a clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(c *serviceConfig) { c.now = now }
}

// WithFitOptions overrides the model seasonality policy.
func WithFitOptions(opts model.FitOptions) Option {
	return func(c *serviceConfig) { c.opts = &opts }
}

// NewService wires the pipeline around a billing source and a model
// strategy.
func NewService(source billing.Source, fitter model.Fitter, opts ...Option) *Service {
	cfg := serviceConfig{
		ttl: DefaultForecastTTL,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, o := range opts {
		o(&cfg)
	}

	engine := NewEngine(fitter)
	if cfg.opts != nil {
		engine = NewEngineWithOptions(fitter, *cfg.opts)
	}

	return &Service{
		loader:  NewSeriesLoader(source, cfg.now),
		engine:  engine,
		cache:   NewCache(cfg.ttl, cfg.metrics),
		metrics: cfg.metrics,
		log:     cfg.log,
		now:     cfg.now,
	}
}

// ForecastCosts forecasts total spend for the project scope (or all
// billing data when no project is set). Warm-cache calls within the TTL
// return the identical result.
func (s *Service) ForecastCosts(ctx context.Context, req Request) (*Result, error) {
	return s.forecast(ctx, scopeKey(req.ProjectID, ""), "", req)
}

// ForecastForService forecasts spend for a single service, cached in its
// own slot independent of the global forecast.
func (s *Service) ForecastForService(ctx context.Context, serviceName string, req Request) (*Result, error) {
	if serviceName == "" {
		return nil, errors.NewInvalidInputError("service name must not be empty")
	}
	return s.forecast(ctx, scopeKey(req.ProjectID, serviceName), serviceName, req)
}

// AlertThresholds derives escalating budget-alert levels from a (fresh
// or cached) forecast. Zero horizons fall back to the conventional
// 30-day budget window over 180 days of history.
func (s *Service) AlertThresholds(ctx context.Context, req Request) (*AlertThresholds, error) {
	if req.ForecastDays == 0 {
		req.ForecastDays = DefaultThresholdForecastDays
	}
	if req.HistoricalDays == 0 {
		req.HistoricalDays = DefaultThresholdHistoricalDays
	}

	result, err := s.ForecastCosts(ctx, req)
	if err != nil {
		return nil, err
	}
	return ThresholdsFromTotal(decimal.NewFromFloat(result.TotalPredicted))
}

// Invalidate clears the cache slot for one scope.
func (s *Service) Invalidate(projectID, serviceName string) {
	s.cache.Invalidate(scopeKey(projectID, serviceName))
}

// InvalidateAll clears every cached forecast.
func (s *Service) InvalidateAll() {
	s.cache.InvalidateAll()
}

func (s *Service) forecast(ctx context.Context, scope, serviceName string, req Request) (*Result, error) {
	now := s.now()
	key := Key{Scope: scope, ForecastDays: req.ForecastDays, HistoricalDays: req.HistoricalDays}

	if !req.ForceRefresh {
		if cached, ok := s.cache.Get(key, now); ok {
			s.log.Debug().Str("scope", scope).Msg("forecast served from cache")
			return cached, nil
		}
	}

	started := time.Now()
	series, err := s.loader.Load(ctx, req.HistoricalDays, req.ProjectID, serviceName)
	if err != nil {
		s.metrics.FitError(scope, errCode(err))
		return nil, err
	}

	result, err := s.engine.Forecast(series, req.ForecastDays, req.HistoricalDays, now)
	if err != nil {
		s.metrics.FitError(scope, errCode(err))
		return nil, err
	}
	s.metrics.ObserveFit(scope, time.Since(started))

	s.log.Info().
		Str("scope", scope).
		Int("observations", len(series)).
		Int("forecast_days", req.ForecastDays).
		Str("trend", string(result.Trend)).
		Float64("confidence", result.ModelConfidence).
		Bool("insufficient_data", result.Insufficient()).
		Msg("forecast computed")

	s.cache.Put(key, result, now)
	return result, nil
}

// scopeKey builds the scope part of the cache key: global and
// per-service forecasts never share slots, and project filters get
// their own. Horizons join it in the full Key.
func scopeKey(projectID, serviceName string) string {
	key := ScopeGlobal
	if serviceName != "" {
		key = "service:" + serviceName
	}
	if projectID != "" {
		key += "|project:" + projectID
	}
	return key
}

func errCode(err error) string {
	for _, code := range []string{
		errors.ErrCodeDataSource,
		errors.ErrCodeModelFit,
		errors.ErrCodeInvalidInput,
	} {
		if errors.IsCode(err, code) {
			return code
		}
	}
	return "UNKNOWN"
}
