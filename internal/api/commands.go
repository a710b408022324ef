package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmhub/farmhub-core/internal/command"
	"github.com/farmhub/farmhub-core/internal/component"
)

// sendCommandRequest is the request body for POST /deployments/{id}/commands.
type sendCommandRequest struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleSendCommand issues a manual actuator command on a deployment.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req sendCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeValidation(w, "command is required")
		return
	}

	detail, err := s.components.GetDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, component.ErrDeploymentNotFound) {
			writeNotFound(w, "deployment not found")
			return
		}
		s.logger.Error("getting deployment failed", "deployment_id", id, "error", err)
		writeInternalError(w, "failed to get deployment")
		return
	}

	var issuedBy *string
	if subject := subjectFromContext(r.Context()); subject != "" {
		issuedBy = &subject
	}

	token := component.WireToken(detail.ComponentIdentifier)
	err = s.sender.Send(r.Context(), detail.DeviceIdentifier, token, req.Command, req.Parameters, command.SourceManual, issuedBy)
	if err != nil {
		switch {
		case errors.Is(err, command.ErrNotActuator):
			writeValidation(w, "deployment is not an actuator")
		case errors.Is(err, command.ErrInvalidParameter):
			writeValidation(w, err.Error())
		default:
			s.logger.Error("sending command failed", "deployment_id", id, "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeDeliveryFailed, "command could not be delivered")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"deployment_id": id,
		"command":       req.Command,
	})
}

// handleListCommands returns the command log for a deployment, newest first.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
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

	limit := parseLimit(r.URL.Query().Get("limit"), defaultReadingLimit)
	records, err := s.commands.ListByDeployment(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing commands failed", "deployment_id", id, "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"commands": records,
		"count":    len(records),
	})
}
