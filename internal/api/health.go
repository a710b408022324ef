package api

import (
	"net/http"
)

// handleHealth returns the service status, the fleet health snapshot,
// and ingest queue statistics.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.monitor != nil {
		snapshot, err := s.monitor.Snapshot(r.Context())
		if err != nil {
			s.logger.Error("health snapshot failed", "error", err)
		} else {
			body["health"] = snapshot
		}
	}

	if s.ingest != nil {
		body["ingest"] = map[string]any{
			"queue_depth": s.ingest.QueueDepth(),
			"dropped":     s.ingest.Dropped(),
		}
	}

	if s.hub != nil {
		body["websocket_clients"] = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, body)
}
