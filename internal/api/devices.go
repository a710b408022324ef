package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/farmhub/farmhub-core/internal/device"
)

// createDeviceRequest is the request body for POST /devices.
type createDeviceRequest struct {
	Identifier string          `json:"identifier"`
	Name       string          `json:"name"`
	DeviceType string          `json:"device_type"`
	Model      *string         `json:"model,omitempty"`
	Metadata   device.Metadata `json:"metadata,omitempty"`
}

// updateDeviceRequest is the request body for PATCH /devices/{id}.
// Nil fields are left unchanged.
type updateDeviceRequest struct {
	Name     *string         `json:"name,omitempty"`
	Model    *string         `json:"model,omitempty"`
	Metadata device.Metadata `json:"metadata,omitempty"`
	Active   *bool           `json:"active,omitempty"`
}

// handleListDevices returns all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("getting device failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	deviceType := req.DeviceType
	if deviceType == "" {
		deviceType = "esp32"
	}

	dev := &device.Device{
		ID:               device.GenerateID(),
		Identifier:       req.Identifier,
		Name:             req.Name,
		DeviceType:       deviceType,
		Model:            req.Model,
		ConnectionStatus: device.StatusUnknown,
		Metadata:         req.Metadata,
		Active:           true,
	}

	if err := device.ValidateDevice(dev); err != nil {
		writeValidation(w, err.Error())
		return
	}

	if err := s.devices.Create(r.Context(), dev); err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			writeConflict(w, "device identifier already registered")
			return
		}
		s.logger.Error("creating device failed", "identifier", req.Identifier, "error", err)
		writeInternalError(w, "failed to create device")
		return
	}

	s.logger.Info("device registered", "device_id", dev.ID, "identifier", dev.Identifier)
	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice applies a partial update to a device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev, err := s.devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("getting device failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	if req.Name != nil {
		dev.Name = *req.Name
	}
	if req.Model != nil {
		dev.Model = req.Model
	}
	if req.Metadata != nil {
		dev.Metadata = req.Metadata
	}
	if req.Active != nil {
		dev.Active = *req.Active
	}

	if err := device.ValidateDevice(dev); err != nil {
		writeValidation(w, err.Error())
		return
	}

	if err := s.devices.Update(r.Context(), dev); err != nil {
		s.logger.Error("updating device failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to update device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.devices.Delete(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("deleting device failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	s.logger.Info("device deleted", "device_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleListDeviceDeployments returns a device's deployments with
// catalog details.
func (s *Server) handleListDeviceDeployments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.devices.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("getting device failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	deployments, err := s.components.ListDeployments(r.Context(), id)
	if err != nil {
		s.logger.Error("listing deployments failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to list deployments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deployments": deployments,
		"count":       len(deployments),
	})
}
