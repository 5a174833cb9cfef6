package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"logdash/internal/core"
	applog "logdash/internal/log"
	"logdash/internal/records"
	"logdash/internal/services"
)

// headerGeneration names the snapshot generation a response was built from.
const headerGeneration = "X-Snapshot-Generation"

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once a snapshot has been published
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if snap, gen, ok := s.provider.Current(); ok {
		checks["snapshot"] = map[string]any{
			"generation":   gen,
			"assembled_at": snap.AssembledAt.Format(time.RFC3339),
			"status":       "ok",
		}
	} else {
		checks["snapshot"] = "pending: " + core.ErrNoSnapshot.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	stats := s.artifacts.Stats()
	checks["artifact_cache"] = map[string]any{
		"entries": s.artifacts.Size(),
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	}
	limits := s.limiter.GetMetrics()
	checks["rate_limiter"] = map[string]any{
		"active_clients": limits.ClientCount,
		"limited":        limits.TotalHits,
	}
	checks["security"] = map[string]any{
		"suspicious_requests": s.detector.GetMetrics().SuspiciousRequests,
	}

	s.writeJSON(w, r, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleSnapshot serves the whole assembled snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, gen, ok := s.current(w)
	if !ok {
		return
	}
	w.Header().Set(headerGeneration, strconv.FormatUint(gen, 10))
	s.writeJSON(w, r, http.StatusOK, snap)
}

// handleSheets re-serves the sheets JSON contract so that another dashboard
// instance can use this one as its source.
func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	snap, gen, ok := s.current(w)
	if !ok {
		return
	}
	w.Header().Set(headerGeneration, strconv.FormatUint(gen, 10))
	s.writeJSON(w, r, http.StatusOK, records.FromSnapshot(snap))
}

// handleRefresh queues a manual refresh and returns immediately
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.provider.Trigger(services.TriggerManual) {
		s.logger.WarnContext(r.Context(), "Refresh requested while refresher is stopped")
		ServiceUnavailableError("Refresher is not running", retryAfterSeconds).Write(w)
		return
	}

	s.logger.InfoContext(r.Context(), "Manual refresh requested",
		applog.FieldTrigger, services.TriggerManual,
		applog.FieldClientIP, s.detector.ExtractClientIP(r))

	NewHTMXResponse().
		Status(http.StatusAccepted).
		TriggerRefreshRequested(2000).
		TriggerNotification(NotificationInfo, "Refresh started", 3000).
		Write(w)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to encode JSON response", applog.FieldError, err)
	}
}
