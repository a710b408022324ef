package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmhub/farmhub-core/internal/automation"
)

// defaultAlertLimit caps alert list responses when no limit is given.
const defaultAlertLimit = 50

// handleListAlerts returns recent alerts, newest first. Pass
// unacknowledged=true to filter to open alerts.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unacknowledgedOnly := q.Get("unacknowledged") == "true"
	limit := parseLimit(q.Get("limit"), defaultAlertLimit)

	alerts, err := s.alerts.ListAlerts(r.Context(), unacknowledgedOnly, limit)
	if err != nil {
		s.logger.Error("listing alerts failed", "error", err)
		writeInternalError(w, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleAcknowledgeAlert marks an alert as acknowledged.
func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.alerts.AcknowledgeAlert(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrAlertNotFound) {
			writeNotFound(w, "alert not found")
			return
		}
		s.logger.Error("acknowledging alert failed", "alert_id", id, "error", err)
		writeInternalError(w, "failed to acknowledge alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           id,
		"acknowledged": true,
	})
}
