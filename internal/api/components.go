package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmhub/farmhub-core/internal/component"
	"github.com/farmhub/farmhub-core/internal/device"
)

// createComponentTypeRequest is the request body for POST /component-types.
type createComponentTypeRequest struct {
	Name        string  `json:"name"`
	Identifier  string  `json:"identifier"`
	Category    string  `json:"category"`
	Unit        *string `json:"unit,omitempty"`
	Description *string `json:"description,omitempty"`
}

// updateComponentTypeRequest is the request body for PATCH /component-types/{id}.
type updateComponentTypeRequest struct {
	Name        *string `json:"name,omitempty"`
	Unit        *string `json:"unit,omitempty"`
	Description *string `json:"description,omitempty"`
}

// createDeploymentRequest is the request body for POST /deployments.
type createDeploymentRequest struct {
	DeviceID        string  `json:"device_id"`
	ComponentTypeID string  `json:"component_type_id"`
	Location        *string `json:"location,omitempty"`
}

// ─── Component catalog ───

// handleListComponentTypes returns the component catalog.
func (s *Server) handleListComponentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.components.ListTypes(r.Context())
	if err != nil {
		s.logger.Error("listing component types failed", "error", err)
		writeInternalError(w, "failed to list component types")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"component_types": types,
		"count":           len(types),
	})
}

// handleGetComponentType returns one catalog entry.
func (s *Server) handleGetComponentType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ct, err := s.components.GetType(r.Context(), id)
	if err != nil {
		if errors.Is(err, component.ErrTypeNotFound) {
			writeNotFound(w, "component type not found")
			return
		}
		s.logger.Error("getting component type failed", "type_id", id, "error", err)
		writeInternalError(w, "failed to get component type")
		return
	}

	writeJSON(w, http.StatusOK, ct)
}

// handleCreateComponentType adds an entry to the component catalog.
func (s *Server) handleCreateComponentType(w http.ResponseWriter, r *http.Request) {
	var req createComponentTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ct := &component.ComponentType{
		ID:          component.GenerateID(),
		Name:        req.Name,
		Identifier:  req.Identifier,
		Category:    component.Category(req.Category),
		Unit:        req.Unit,
		Description: req.Description,
	}

	if err := component.ValidateType(ct); err != nil {
		writeValidation(w, err.Error())
		return
	}

	if err := s.components.CreateType(r.Context(), ct); err != nil {
		if errors.Is(err, component.ErrTypeExists) {
			writeConflict(w, "component identifier already in catalog")
			return
		}
		s.logger.Error("creating component type failed", "identifier", req.Identifier, "error", err)
		writeInternalError(w, "failed to create component type")
		return
	}

	s.logger.Info("component type created", "type_id", ct.ID, "identifier", ct.Identifier)
	writeJSON(w, http.StatusCreated, ct)
}

// handleUpdateComponentType applies a partial update to a catalog entry.
// Identifier and category are immutable; deployments depend on them.
func (s *Server) handleUpdateComponentType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateComponentTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ct, err := s.components.GetType(r.Context(), id)
	if err != nil {
		if errors.Is(err, component.ErrTypeNotFound) {
			writeNotFound(w, "component type not found")
			return
		}
		s.logger.Error("getting component type failed", "type_id", id, "error", err)
		writeInternalError(w, "failed to get component type")
		return
	}

	if req.Name != nil {
		ct.Name = *req.Name
	}
	if req.Unit != nil {
		ct.Unit = req.Unit
	}
	if req.Description != nil {
		ct.Description = req.Description
	}

	if err := component.ValidateType(ct); err != nil {
		writeValidation(w, err.Error())
		return
	}

	if err := s.components.UpdateType(r.Context(), ct); err != nil {
		s.logger.Error("updating component type failed", "type_id", id, "error", err)
		writeInternalError(w, "failed to update component type")
		return
	}

	writeJSON(w, http.StatusOK, ct)
}

// handleDeleteComponentType removes a catalog entry.
func (s *Server) handleDeleteComponentType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.components.DeleteType(r.Context(), id); err != nil {
		if errors.Is(err, component.ErrTypeNotFound) {
			writeNotFound(w, "component type not found")
			return
		}
		s.logger.Error("deleting component type failed", "type_id", id, "error", err)
		writeInternalError(w, "failed to delete component type")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// ─── Deployments ───

// handleCreateDeployment binds a component type to a device.
func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var req createDeploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" || req.ComponentTypeID == "" {
		writeValidation(w, "device_id and component_type_id are required")
		return
	}

	// Both sides must exist before binding.
	if _, err := s.devices.GetByID(r.Context(), req.DeviceID); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("getting device failed", "device_id", req.DeviceID, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}
	if _, err := s.components.GetType(r.Context(), req.ComponentTypeID); err != nil {
		if errors.Is(err, component.ErrTypeNotFound) {
			writeNotFound(w, "component type not found")
			return
		}
		s.logger.Error("getting component type failed", "type_id", req.ComponentTypeID, "error", err)
		writeInternalError(w, "failed to get component type")
		return
	}

	deployment := &component.Deployment{
		ID:               component.GenerateID(),
		DeviceID:         req.DeviceID,
		ComponentTypeID:  req.ComponentTypeID,
		Location:         req.Location,
		Active:           true,
		ConnectionStatus: component.StatusUnknown,
	}

	if err := s.components.CreateDeployment(r.Context(), deployment); err != nil {
		if errors.Is(err, component.ErrDeploymentExists) {
			writeConflict(w, "device already carries this component type")
			return
		}
		s.logger.Error("creating deployment failed", "device_id", req.DeviceID, "error", err)
		writeInternalError(w, "failed to create deployment")
		return
	}

	s.logger.Info("deployment created",
		"deployment_id", deployment.ID,
		"device_id", req.DeviceID,
		"component_type_id", req.ComponentTypeID,
	)
	writeJSON(w, http.StatusCreated, deployment)
}

// handleGetDeployment returns a deployment with device and catalog details.
func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

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

	writeJSON(w, http.StatusOK, detail)
}

// handleDeleteDeployment removes a deployment.
func (s *Server) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.components.DeleteDeployment(r.Context(), id); err != nil {
		if errors.Is(err, component.ErrDeploymentNotFound) {
			writeNotFound(w, "deployment not found")
			return
		}
		s.logger.Error("deleting deployment failed", "deployment_id", id, "error", err)
		writeInternalError(w, "failed to delete deployment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
