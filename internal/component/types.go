package component

import "time"

// Category classifies a component type as a sensor or an actuator.
type Category string

// Component categories.
const (
	CategorySensor   Category = "sensor"
	CategoryActuator Category = "actuator"
)

// Valid reports whether the category is a recognised value.
func (c Category) Valid() bool {
	return c == CategorySensor || c == CategoryActuator
}

// ConnectionStatus tracks whether a deployment is currently producing
// or accepting messages.
type ConnectionStatus string

// Connection status values for deployments.
const (
	StatusUnknown ConnectionStatus = "unknown"
	StatusOnline  ConnectionStatus = "online"
	StatusOffline ConnectionStatus = "offline"
	StatusError   ConnectionStatus = "error"
)

// Valid reports whether the status is a recognised value.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case StatusUnknown, StatusOnline, StatusOffline, StatusError:
		return true
	}
	return false
}

// ComponentType is a catalog entry describing a kind of sensor or
// actuator hardware (e.g. a DHT11 temperature probe, a ventilation fan
// relay). Deployments bind catalog entries to physical devices.
type ComponentType struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Identifier is the unique catalog name (e.g. "dht11_sensor_temperature").
	// Inbound wire tokens resolve to this via the token registry.
	Identifier string `json:"identifier"`

	Category    Category `json:"category"`
	Unit        *string  `json:"unit,omitempty"`
	Description *string  `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deployment is one physical instance of a component type wired to a
// device. All telemetry state lives here: every matching inbound
// message updates the last-value and last-interaction fields.
type Deployment struct {
	ID              string `json:"id"`
	DeviceID        string `json:"device_id"`
	ComponentTypeID string `json:"component_type_id"`

	Location *string `json:"location,omitempty"`
	Active   bool    `json:"active"`

	// ConnectionStatus transitions:
	//   offline/unknown -> online  by message processors only
	//   online -> offline          by the liveness monitor only
	ConnectionStatus ConnectionStatus `json:"connection_status"`

	// LastValue is the last observed reading (sensors) or applied
	// set-point (actuators).
	LastValue         *float64   `json:"last_value,omitempty"`
	LastValueAt       *time.Time `json:"last_value_at,omitempty"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeploymentDetail is a Deployment joined with the fields from its
// device and catalog entry that the pipeline needs to route messages
// and commands without extra lookups.
type DeploymentDetail struct {
	Deployment

	DeviceIdentifier    string   `json:"device_identifier"`
	ComponentIdentifier string   `json:"component_identifier"`
	ComponentName       string   `json:"component_name"`
	Category            Category `json:"category"`
	Unit                *string  `json:"unit,omitempty"`
}

// StatusCounts summarises deployments of one category by connection status.
type StatusCounts struct {
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Unknown int `json:"unknown"`
	Error   int `json:"error"`
}

// Total returns the number of deployments counted.
func (c StatusCounts) Total() int {
	return c.Online + c.Offline + c.Unknown + c.Error
}
