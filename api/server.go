// Package api provides the HTTP API server for the cost forecasting
// service. Handlers are thin consumers of forecast.Service; all
// forecasting logic lives in the core packages.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"finops-forecast/forecast"
	"finops-forecast/pkg/errors"
)

// Pinger is implemented by billing sources with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AuthUser/AuthPass guard mutating endpoints; empty disables them.
	AuthUser string
	AuthPass string

	DefaultForecastDays   int
	DefaultHistoricalDays int
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:                  8080,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		DefaultForecastDays:   90,
		DefaultHistoricalDays: 180,
	}
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	svc        *forecast.Service
	source     Pinger
	cfg        *Config
	log        zerolog.Logger
}

// NewServer creates a new API server. source may be nil when the billing
// backend has no connectivity check (e.g. Cost Explorer).
func NewServer(svc *forecast.Service, source Pinger, cfg *Config, log zerolog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{svc: svc, source: source, cfg: cfg, log: log}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Int("port", s.cfg.Port).Msg("forecast API server starting")
	return s.httpServer.ListenAndServe()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.WriteTimeout))
	r.Use(s.logMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/forecast", s.handleForecast)
		r.Get("/forecast/service/{service}", s.handleServiceForecast)
		r.Get("/forecast/thresholds", s.handleThresholds)
		r.With(s.basicAuth).Post("/cache/invalidate", s.handleInvalidate)
	})

	return r
}

// StartWithGracefulShutdown starts the server and drains connections on
// SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.log.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthUser == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(s.cfg.AuthUser)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(s.cfg.AuthPass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			s.jsonError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "finops-forecast",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.source != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.source.Ping(ctx); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "billing source not ready")
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

// =============================================================================
// FORECAST ENDPOINTS
// =============================================================================

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.ForecastCosts(r.Context(), req)
	if err != nil {
		s.writeForecastError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleServiceForecast(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.svc.ForecastForService(r.Context(), chi.URLParam(r, "service"), req)
	if err != nil {
		s.writeForecastError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Thresholds conventionally size a 30-day budget window; only use
	// the server default for history.
	if r.URL.Query().Get("days") == "" {
		req.ForecastDays = forecast.DefaultThresholdForecastDays
	}

	thresholds, err := s.svc.AlertThresholds(r.Context(), req)
	if err != nil {
		s.writeForecastError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, thresholds)
}

// InvalidateRequest clears cached forecasts: one scope, or everything.
type InvalidateRequest struct {
	All     bool   `json:"all"`
	Project string `json:"project,omitempty"`
	Service string `json:"service,omitempty"`
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if req.All {
		s.svc.InvalidateAll()
	} else {
		s.svc.Invalidate(req.Project, req.Service)
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) parseRequest(r *http.Request) (forecast.Request, error) {
	req := forecast.Request{
		ForecastDays:   s.cfg.DefaultForecastDays,
		HistoricalDays: s.cfg.DefaultHistoricalDays,
		ProjectID:      r.URL.Query().Get("project"),
		ForceRefresh:   r.URL.Query().Get("refresh") == "true",
	}

	if v := r.URL.Query().Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return req, fmt.Errorf("days must be a positive integer, got %q", v)
		}
		req.ForecastDays = days
	}
	if v := r.URL.Query().Get("historical_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return req, fmt.Errorf("historical_days must be a positive integer, got %q", v)
		}
		req.HistoricalDays = days
	}
	return req, nil
}

func (s *Server) writeForecastError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsCode(err, errors.ErrCodeInvalidInput):
		s.jsonError(w, http.StatusBadRequest, err.Error())
	case errors.IsCode(err, errors.ErrCodeDataSource):
		s.log.Error().Err(err).Msg("billing source failure")
		s.jsonError(w, http.StatusBadGateway, "billing data source unavailable")
	case errors.IsCode(err, errors.ErrCodeModelFit):
		s.log.Error().Err(err).Msg("model fit failure")
		s.jsonError(w, http.StatusInternalServerError, "forecast model failed")
	default:
		s.log.Error().Err(err).Msg("forecast failure")
		s.jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
