package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"smartexpense/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "http_response_time_avg_microseconds %d\n", tm.AverageResponseTime)
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n", rm.Rejected)
	fmt.Fprintf(w, "rate_limit_active_clients %d\n", rm.ClientCount)
	fmt.Fprintf(w, "security_suspicious_requests_total %d\n", dm.SuspiciousRequests)
	fmt.Fprintf(w, "security_invalid_ip_total %d\n", dm.InvalidIPAttempts)
}
