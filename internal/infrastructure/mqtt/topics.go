package mqtt

import (
	"fmt"
	"strings"
)

// DefaultNamespace is the topic namespace used when the configuration
// does not override it.
const DefaultNamespace = "farm"

// Telemetry kinds recognised on inbound topics.
const (
	KindSensor    = "sensor"
	KindActuator  = "actuator"
	KindStatus    = "status"
	KindHeartbeat = "heartbeat"
)

// Topics builds FarmHub MQTT topic strings under a configurable namespace.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Inbound device traffic follows the scheme:
//
//	{namespace}/{deviceID}/{kind}[/{token}]
//
// where kind is one of sensor, actuator, status or heartbeat and token
// names the component on the device (e.g. "temperature", "fan1").
// Outbound actuator commands follow:
//
//	{namespace}/{deviceID}/actuator/{token}/cmd
type Topics struct {
	// Namespace is the leading topic segment. Empty means DefaultNamespace.
	Namespace string
}

// NewTopics returns a Topics builder for the given namespace.
// An empty namespace falls back to DefaultNamespace.
func NewTopics(namespace string) Topics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Topics{Namespace: namespace}
}

func (t Topics) ns() string {
	if t.Namespace == "" {
		return DefaultNamespace
	}
	return t.Namespace
}

// =============================================================================
// Inbound Device Topics
// =============================================================================

// Sensor returns the topic a device publishes a single sensor value on.
//
// Example: farm/esp32-A1/sensor/temperature
func (t Topics) Sensor(deviceID, token string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.ns(), deviceID, KindSensor, token)
}

// ActuatorEcho returns the topic a device echoes actuator state changes on.
//
// Example: farm/esp32-A1/actuator/fan1
func (t Topics) ActuatorEcho(deviceID, token string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.ns(), deviceID, KindActuator, token)
}

// Status returns the topic a device publishes connection status on.
//
// Example: farm/esp32-A1/status
func (t Topics) Status(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", t.ns(), deviceID, KindStatus)
}

// Heartbeat returns the topic a device publishes liveness beacons on.
//
// Example: farm/esp32-A1/heartbeat
func (t Topics) Heartbeat(deviceID string) string {
	return fmt.Sprintf("%s/%s/%s", t.ns(), deviceID, KindHeartbeat)
}

// =============================================================================
// Outbound Command Topics
// =============================================================================

// ActuatorCommand returns the topic commands to a device component are
// published on. Devices subscribe to this exact topic per component.
//
// Example: farm/esp32-A1/actuator/fan1/cmd
func (t Topics) ActuatorCommand(deviceID, token string) string {
	return fmt.Sprintf("%s/%s/%s/%s/cmd", t.ns(), deviceID, KindActuator, token)
}

// SystemStatus returns the topic the core announces its own availability
// on. Used for the broker will (LWT) and the online announcement.
//
// Example: farm/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.ns())
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllSensors returns a pattern matching every sensor reading.
//
// Pattern: farm/+/sensor/+
func (t Topics) AllSensors() string {
	return fmt.Sprintf("%s/+/%s/+", t.ns(), KindSensor)
}

// AllActuatorEchoes returns a pattern matching every actuator state echo.
// Command topics carry a trailing /cmd segment and do not match this
// pattern, so the core never consumes its own outbound commands.
//
// Pattern: farm/+/actuator/+
func (t Topics) AllActuatorEchoes() string {
	return fmt.Sprintf("%s/+/%s/+", t.ns(), KindActuator)
}

// AllStatuses returns a pattern matching every device status message.
//
// Pattern: farm/+/status
func (t Topics) AllStatuses() string {
	return fmt.Sprintf("%s/+/%s", t.ns(), KindStatus)
}

// AllHeartbeats returns a pattern matching every device heartbeat.
//
// Pattern: farm/+/heartbeat
func (t Topics) AllHeartbeats() string {
	return fmt.Sprintf("%s/+/%s", t.ns(), KindHeartbeat)
}

// AllTopics returns a pattern matching all traffic in the namespace.
// Use with caution - this receives ALL traffic.
//
// Pattern: farm/#
func (t Topics) AllTopics() string {
	return t.ns() + "/#"
}

// =============================================================================
// Topic Parsing
// =============================================================================

// ParsedTopic is the decomposed form of an inbound device topic.
type ParsedTopic struct {
	Namespace string
	DeviceID  string
	Kind      string
	// Token is the component token for sensor and actuator topics.
	// Empty for status and heartbeat topics.
	Token string
}

// ParseTopic decomposes an inbound topic into its segments. It accepts
// the three-segment form (status, heartbeat) and the four-segment form
// (sensor, actuator). Anything else, including outbound /cmd topics,
// returns an error.
func (t Topics) ParseTopic(topic string) (ParsedTopic, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || len(parts) > 4 {
		return ParsedTopic{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	if parts[0] != t.ns() {
		return ParsedTopic{}, fmt.Errorf("%w: namespace %q in %q", ErrMalformedTopic, parts[0], topic)
	}

	p := ParsedTopic{
		Namespace: parts[0],
		DeviceID:  parts[1],
		Kind:      parts[2],
	}
	if p.DeviceID == "" {
		return ParsedTopic{}, fmt.Errorf("%w: empty device segment in %q", ErrMalformedTopic, topic)
	}

	switch p.Kind {
	case KindSensor, KindActuator:
		if len(parts) != 4 || parts[3] == "" {
			return ParsedTopic{}, fmt.Errorf("%w: %s topic %q needs a component token", ErrMalformedTopic, p.Kind, topic)
		}
		p.Token = parts[3]
	case KindStatus, KindHeartbeat:
		if len(parts) != 3 {
			return ParsedTopic{}, fmt.Errorf("%w: %s topic %q has trailing segments", ErrMalformedTopic, p.Kind, topic)
		}
	default:
		return ParsedTopic{}, fmt.Errorf("%w: unknown kind %q in %q", ErrMalformedTopic, p.Kind, topic)
	}

	return p, nil
}
