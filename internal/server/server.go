// Package server exposes the monitor's state over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sentineldb/internal/metrics"
	"sentineldb/internal/models"
)

const defaultLimit = 10

type StatusProvider interface {
	Status() models.MonitorStatus
}

type DetectorStatsProvider interface {
	Stats() models.DetectorStats
}

type Journal interface {
	RecentSamples(ctx context.Context, count int64) ([]models.Sample, error)
	RecentAlerts(ctx context.Context, count int64) ([]models.AlertDecision, error)
}

type Server struct {
	router   *mux.Router
	monitor  StatusProvider
	detector DetectorStatsProvider
	journal  Journal
	logger   *zap.Logger
	version  string
}

// New builds the status API. journal may be nil, in which case the history
// endpoints answer 503.
func New(monitor StatusProvider, detector DetectorStatsProvider, journal Journal, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:   mux.NewRouter(),
		monitor:  monitor,
		detector: detector,
		journal:  journal,
		logger:   logger.Named("http"),
		version:  version,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.instrument(s.healthHandler)).Methods("GET")
	s.router.HandleFunc("/analytics/current", s.instrument(s.currentHandler)).Methods("GET")
	s.router.HandleFunc("/analytics/samples", s.instrument(s.samplesHandler)).Methods("GET")
	s.router.HandleFunc("/analytics/alerts", s.instrument(s.alertsHandler)).Methods("GET")
	s.router.Handle("/metrics/prometheus", promhttp.Handler())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		duration := time.Since(start).Seconds()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := s.monitor.Status()

	health := map[string]interface{}{
		"status":    "healthy",
		"monitor":   status.State,
		"timestamp": time.Now().UTC(),
		"version":   s.version,
	}
	code := http.StatusOK
	if status.State == "stopped" {
		health["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) currentHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"monitor":  s.monitor.Status(),
		"detector": s.detector.Stats(),
	})
}

func (s *Server) samplesHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireJournal(w) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	samples, err := s.journal.RecentSamples(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read recent samples", zap.Error(err))
		http.Error(w, "failed to read samples", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []models.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requireJournal(w) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	alerts, err := s.journal.RecentAlerts(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read recent alerts", zap.Error(err))
		http.Error(w, "failed to read alerts", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []models.AlertDecision{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) requireJournal(w http.ResponseWriter) bool {
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func parseLimit(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info("server is shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("could not gracefully shutdown the server", zap.Error(err))
		}
	}()

	s.logger.Info("server is ready to handle requests", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}

	<-done
	s.logger.Info("server stopped")
	return nil
}
