package device

import "time"

// ConnectionStatus tracks whether a device is currently reachable.
type ConnectionStatus string

// Connection status values.
const (
	StatusOnline  ConnectionStatus = "online"
	StatusOffline ConnectionStatus = "offline"
	StatusUnknown ConnectionStatus = "unknown"
)

// Valid reports whether the status is a recognised value.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusUnknown:
		return true
	}
	return false
}

// Metadata is a free-form JSON object attached to a device.
type Metadata map[string]any

// Device represents a field controller (typically an ESP32 node) that
// publishes telemetry and carries sensor and actuator components.
// This matches the devices table in the initial schema migration.
type Device struct {
	// Identity
	ID string `json:"id"`

	// Identifier is the MQTT-facing device ID, the second segment of
	// every topic the device publishes on (e.g. "esp32-A1").
	Identifier string `json:"identifier"`

	Name string `json:"name"`

	// Classification
	DeviceType string `json:"device_type"`

	// Hardware details
	Model           *string `json:"model,omitempty"`
	IPAddress       *string `json:"ip_address,omitempty"`
	FirmwareVersion *string `json:"firmware_version,omitempty"`

	// Liveness
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	LastHeartbeatAt  *time.Time       `json:"last_heartbeat_at,omitempty"`

	Metadata Metadata `json:"metadata,omitempty"`
	Active   bool     `json:"active"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// The metadata map is cloned so modifications to the copy do not
// affect the original.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.Metadata != nil {
		cpy.Metadata = make(Metadata, len(d.Metadata))
		for k, v := range d.Metadata {
			cpy.Metadata[k] = v
		}
	}

	// Pointer fields (*string, *time.Time) don't need deep copy
	// because strings and time.Time are immutable in Go

	return &cpy
}

// StatusCounts summarises devices by connection status.
// Used by the health snapshot.
type StatusCounts struct {
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Unknown int `json:"unknown"`
}

// Total returns the number of devices counted.
func (c StatusCounts) Total() int {
	return c.Online + c.Offline + c.Unknown
}
