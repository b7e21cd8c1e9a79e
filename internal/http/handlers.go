package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	applog "asrama/internal/log"
	"asrama/internal/period"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth reports liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the data backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"templates": "ok", "backend": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.readiness(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		checks["backend"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	tm := s.tracer.Metrics()
	rl := s.limiter.Metrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", tm.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", tm.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", tm.AverageResponseTime)
	metric("rate_limit_rejected_total", "counter", "Requests rejected by the rate limiter", rl.Rejected)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", rl.Clients)
	metric("suspicious_requests_total", "counter", "Requests blocked as scanner traffic", s.detector.Blocked())
	if s.series != nil {
		cs := s.series.Stats()
		metric("series_cache_hits_total", "counter", "Finance series cache hits", cs.Hits)
		metric("series_cache_misses_total", "counter", "Finance series cache misses", cs.Misses)
		metric("series_cache_evictions_total", "counter", "Finance series cache evictions", cs.Evictions)
		metric("series_cache_entries", "gauge", "Finance series cache entries", cs.Size)
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", s.now().Sub(s.started).Seconds()))
}

// handleSeries returns the chart data for the dashboard.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	g, year, err := parseSeriesQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	series, err := s.finance.Series(r.Context(), g, year)
	if err != nil {
		status, msg := userMessage(err)
		s.logger.ErrorContext(r.Context(), "Finance series failed",
			applog.FieldGranularity, string(g),
			applog.FieldYear, year,
			applog.FieldError, err)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, series)
}

var granularities = []period.Granularity{period.Monthly, period.Quarterly, period.Yearly}
