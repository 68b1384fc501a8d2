// Package metrics exposes Prometheus collectors for the forecasting
// pipeline. All methods are nil-safe so wiring metrics stays optional.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for forecast requests and the
// result cache.
type Metrics struct {
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	fitDuration *prometheus.HistogramVec
	fitErrors   *prometheus.CounterVec
}

// New registers collectors on the given registerer (nil uses the
// default registry).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finops_forecast_cache_hits_total",
				Help: "Forecast cache hits per scope",
			},
			[]string{"scope"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finops_forecast_cache_misses_total",
				Help: "Forecast cache misses (empty or stale slot) per scope",
			},
			[]string{"scope"},
		),
		fitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finops_forecast_fit_duration_seconds",
				Help:    "Wall time of billing query plus model fit",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scope"},
		),
		fitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finops_forecast_errors_total",
				Help: "Forecast pipeline failures by error code",
			},
			[]string{"scope", "code"},
		),
	}
}

func (m *Metrics) CacheHit(scope string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(scope).Inc()
}

func (m *Metrics) CacheMiss(scope string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveFit(scope string, d time.Duration) {
	if m == nil {
		return
	}
	m.fitDuration.WithLabelValues(scope).Observe(d.Seconds())
}

func (m *Metrics) FitError(scope, code string) {
	if m == nil {
		return
	}
	m.fitErrors.WithLabelValues(scope, code).Inc()
}
