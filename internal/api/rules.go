package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmhub/farmhub-core/internal/automation"
)

// createRuleRequest is the request body for POST /rules.
type createRuleRequest struct {
	Name               string         `json:"name"`
	Description        *string        `json:"description,omitempty"`
	SensorDeploymentID string         `json:"sensor_deployment_id"`
	Operator           string         `json:"operator"`
	ThresholdValue     float64        `json:"threshold_value"`
	ActionType         string         `json:"action_type"`
	TargetDeploymentID *string        `json:"target_deployment_id,omitempty"`
	ActuatorCommand    *string        `json:"actuator_command,omitempty"`
	ActuatorParameters map[string]any `json:"actuator_parameters,omitempty"`
	AlertTitle         *string        `json:"alert_title,omitempty"`
	AlertMessage       *string        `json:"alert_message,omitempty"`
	AlertSeverity      *string        `json:"alert_severity,omitempty"`
	CooldownMinutes    int            `json:"cooldown_minutes,omitempty"`
}

// updateRuleRequest is the request body for PATCH /rules/{id}.
// Nil fields are left unchanged.
type updateRuleRequest struct {
	Name               *string        `json:"name,omitempty"`
	Description        *string        `json:"description,omitempty"`
	Operator           *string        `json:"operator,omitempty"`
	ThresholdValue     *float64       `json:"threshold_value,omitempty"`
	TargetDeploymentID *string        `json:"target_deployment_id,omitempty"`
	ActuatorCommand    *string        `json:"actuator_command,omitempty"`
	ActuatorParameters map[string]any `json:"actuator_parameters,omitempty"`
	AlertTitle         *string        `json:"alert_title,omitempty"`
	AlertMessage       *string        `json:"alert_message,omitempty"`
	AlertSeverity      *string        `json:"alert_severity,omitempty"`
	CooldownMinutes    *int           `json:"cooldown_minutes,omitempty"`
}

// handleListRules returns all automation rules.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.rules.ListRules(r.Context())
	if err != nil {
		s.logger.Error("listing rules failed", "error", err)
		writeInternalError(w, "failed to list rules")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// handleGetRule returns one rule.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := s.rules.GetRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("getting rule failed", "rule_id", id, "error", err)
		writeInternalError(w, "failed to get rule")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// handleCreateRule creates an automation rule.
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	rule := &automation.Rule{
		Name:               req.Name,
		Description:        req.Description,
		SensorDeploymentID: req.SensorDeploymentID,
		Operator:           automation.Operator(req.Operator),
		ThresholdValue:     req.ThresholdValue,
		ActionType:         automation.ActionType(req.ActionType),
		TargetDeploymentID: req.TargetDeploymentID,
		ActuatorCommand:    req.ActuatorCommand,
		ActuatorParameters: req.ActuatorParameters,
		AlertTitle:         req.AlertTitle,
		AlertMessage:       req.AlertMessage,
		AlertSeverity:      req.AlertSeverity,
		Active:             true,
		CooldownMinutes:    req.CooldownMinutes,
	}
	if subject := subjectFromContext(r.Context()); subject != "" {
		rule.CreatedBy = &subject
	}

	if err := s.rules.CreateRule(r.Context(), rule); err != nil {
		if isRuleValidationError(err) {
			writeValidation(w, err.Error())
			return
		}
		s.logger.Error("creating rule failed", "name", req.Name, "error", err)
		writeInternalError(w, "failed to create rule")
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

// handleUpdateRule applies a partial update to a rule. The watched
// sensor and action type are immutable; delete and recreate to change
// what a rule fundamentally does.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	rule, err := s.rules.GetRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("getting rule failed", "rule_id", id, "error", err)
		writeInternalError(w, "failed to get rule")
		return
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.Operator != nil {
		rule.Operator = automation.Operator(*req.Operator)
	}
	if req.ThresholdValue != nil {
		rule.ThresholdValue = *req.ThresholdValue
	}
	if req.TargetDeploymentID != nil {
		rule.TargetDeploymentID = req.TargetDeploymentID
	}
	if req.ActuatorCommand != nil {
		rule.ActuatorCommand = req.ActuatorCommand
	}
	if req.ActuatorParameters != nil {
		rule.ActuatorParameters = req.ActuatorParameters
	}
	if req.AlertTitle != nil {
		rule.AlertTitle = req.AlertTitle
	}
	if req.AlertMessage != nil {
		rule.AlertMessage = req.AlertMessage
	}
	if req.AlertSeverity != nil {
		rule.AlertSeverity = req.AlertSeverity
	}
	if req.CooldownMinutes != nil {
		rule.CooldownMinutes = *req.CooldownMinutes
	}

	if err := s.rules.UpdateRule(r.Context(), rule); err != nil {
		if isRuleValidationError(err) {
			writeValidation(w, err.Error())
			return
		}
		s.logger.Error("updating rule failed", "rule_id", id, "error", err)
		writeInternalError(w, "failed to update rule")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// handleDeleteRule removes a rule.
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.rules.DeleteRule(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("deleting rule failed", "rule_id", id, "error", err)
		writeInternalError(w, "failed to delete rule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleActivateRule enables a rule.
func (s *Server) handleActivateRule(w http.ResponseWriter, r *http.Request) {
	s.toggleRule(w, r, true)
}

// handleDeactivateRule disables a rule.
func (s *Server) handleDeactivateRule(w http.ResponseWriter, r *http.Request) {
	s.toggleRule(w, r, false)
}

func (s *Server) toggleRule(w http.ResponseWriter, r *http.Request, active bool) {
	id := chi.URLParam(r, "id")

	if err := s.rules.SetActive(r.Context(), id, active); err != nil {
		if errors.Is(err, automation.ErrRuleNotFound) {
			writeNotFound(w, "rule not found")
			return
		}
		s.logger.Error("toggling rule failed", "rule_id", id, "error", err)
		writeInternalError(w, "failed to toggle rule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"active": active,
	})
}

// isRuleValidationError reports whether a registry error is the
// caller's fault rather than a storage failure.
func isRuleValidationError(err error) bool {
	return errors.Is(err, automation.ErrInvalidRule) ||
		errors.Is(err, automation.ErrInvalidName) ||
		errors.Is(err, automation.ErrInvalidOperator) ||
		errors.Is(err, automation.ErrInvalidAction) ||
		errors.Is(err, automation.ErrSensorRequired) ||
		errors.Is(err, automation.ErrTargetRequired)
}
