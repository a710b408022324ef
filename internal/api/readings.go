package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/farmhub/farmhub-core/internal/component"
	"github.com/farmhub/farmhub-core/internal/telemetry"
)

// defaultReadingLimit caps list responses when no limit is given.
const defaultReadingLimit = 100

// maxReadingLimit is the hard upper bound on a single list response.
const maxReadingLimit = 1000

// handleListReadings returns readings for a deployment. Without query
// parameters it returns the most recent readings, newest first. With
// from/to (RFC 3339) it returns the window oldest first, for charting.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.components.GetDeployment(r.Context(), id); err != nil {
		if errors.Is(err, component.ErrDeploymentNotFound) {
			writeNotFound(w, "deployment not found")
			return
		}
		s.logger.Error("getting deployment failed", "deployment_id", id, "error", err)
		writeInternalError(w, "failed to get deployment")
		return
	}

	q := r.URL.Query()
	fromStr, toStr := q.Get("from"), q.Get("to")

	var readings []telemetry.Reading
	var err error
	if fromStr != "" || toStr != "" {
		from, to, parseErr := parseWindow(fromStr, toStr)
		if parseErr != nil {
			writeBadRequest(w, parseErr.Error())
			return
		}
		readings, err = s.readings.ListWindow(r.Context(), id, from, to)
	} else {
		limit := parseLimit(q.Get("limit"), defaultReadingLimit)
		readings, err = s.readings.ListByDeployment(r.Context(), id, limit)
	}
	if err != nil {
		s.logger.Error("listing readings failed", "deployment_id", id, "error", err)
		writeInternalError(w, "failed to list readings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"readings": readings,
		"count":    len(readings),
	})
}

// handleLatestReading returns the most recent reading for a deployment.
func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reading, err := s.readings.Latest(r.Context(), id)
	if err != nil {
		if errors.Is(err, telemetry.ErrReadingNotFound) {
			writeNotFound(w, "no readings recorded for deployment")
			return
		}
		s.logger.Error("getting latest reading failed", "deployment_id", id, "error", err)
		writeInternalError(w, "failed to get latest reading")
		return
	}

	writeJSON(w, http.StatusOK, reading)
}

// parseWindow parses the from/to query parameters. A missing to means
// now; from is required.
func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" {
		return time.Time{}, time.Time{}, errors.New("from parameter is required for window queries")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be an RFC 3339 timestamp")
	}

	to := time.Now().UTC()
	if toStr != "" {
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be an RFC 3339 timestamp")
		}
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("to must be after from")
	}
	return from, to, nil
}

// parseLimit parses a limit query parameter with a default and cap.
func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > maxReadingLimit {
		return maxReadingLimit
	}
	return limit
}
