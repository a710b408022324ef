// Package device manages the registry of field controllers.
//
// A device is a physical node (typically an ESP32) that connects to the
// MQTT broker, publishes sensor readings, status and heartbeats, and
// subscribes to actuator command topics. Devices are identified on the
// wire by their MQTT identifier, the second segment of every topic they
// publish on.
//
// The package provides:
//   - Device type and validation rules
//   - SQLite-backed Repository for persistence
//   - Connection status transitions used by the telemetry processors
//     (offline to online) and the liveness monitor (online to offline)
package device
