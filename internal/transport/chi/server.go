// Package chi serves the healthcheck HTTP API.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nimdassdev/passbolt-api/internal/metrics"
	"github.com/nimdassdev/passbolt-api/internal/usecase/healthcheck"
)

// runTimeout bounds a full healthcheck run regardless of the caller.
const runTimeout = 30 * time.Second

// HealthcheckRunner runs the server side healthchecks.
type HealthcheckRunner interface {
	RunAll(ctx context.Context, report healthcheck.Report, client *http.Client) healthcheck.Report
	JWT(ctx context.Context, report healthcheck.Report) healthcheck.Report
}

// Server exposes the healthcheck endpoints.
type Server struct {
	runner HealthcheckRunner
	group  singleflight.Group
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(runner HealthcheckRunner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{runner: runner, logger: logger}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthcheck.json", s.Healthcheck)
	r.Get("/healthcheck/status.json", s.Status)
	r.Get("/metrics", s.Metrics)
}

// envelope is the legacy API response shape.
type envelope struct {
	Status     string             `json:"status"`
	Servertime int64              `json:"servertime"`
	Body       healthcheck.Report `json:"body"`
}

// Healthcheck handles GET /healthcheck.json. Concurrent requests share one
// run.
func (s *Server) Healthcheck(w http.ResponseWriter, r *http.Request) {
	result, _, _ := s.group.Do("healthcheck", func() (any, error) {
		// The run is shared across callers, so it must not die with the
		// first one.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), runTimeout)
		defer cancel()

		start := time.Now()
		report := s.runner.RunAll(ctx, healthcheck.Report{}, nil)
		report = s.runner.JWT(ctx, report)

		metrics.HealthcheckRunsTotal.WithLabelValues("api").Inc()
		metrics.HealthcheckRunDuration.Observe(time.Since(start).Seconds())
		s.logger.Info("healthcheck run completed", zap.Duration("elapsed", time.Since(start)))

		return report, nil
	})

	writeJSON(w, http.StatusOK, envelope{
		Status:     "success",
		Servertime: time.Now().Unix(),
		Body:       result.(healthcheck.Report),
	})
}

// Status handles GET /healthcheck/status.json, the liveness probe the core
// reachability check requests.
func (s *Server) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "OK")
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
