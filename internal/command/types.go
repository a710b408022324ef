package command

import (
	"time"

	"github.com/google/uuid"
)

// Sources recorded in the command log.
const (
	SourceDevice     = "device"     // echoed state reported by the device itself
	SourceManual     = "manual"     // issued by a user through the API
	SourceAutomation = "automation" // issued by a rule
)

// Record is one entry in the actuator command log. Both outbound
// commands and device-reported state changes land here, distinguished
// by Source.
type Record struct {
	ID           string         `json:"id"`
	DeploymentID string         `json:"deployment_id"`
	Command      string         `json:"command"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Source       string         `json:"source"`
	IssuedBy     *string        `json:"issued_by,omitempty"`
	Delivered    bool           `json:"delivered"`
	RecordedAt   time.Time      `json:"recorded_at"`
}

// GenerateID creates a new UUID for a command record.
func GenerateID() string {
	return uuid.New().String()
}
