// Package component manages the hardware catalog and its deployments.
//
// A ComponentType is a catalog entry describing a kind of sensor or
// actuator. A Deployment binds a catalog entry to a device: one
// physical probe or relay, carrying all of its live telemetry state
// (last value, last interaction, connection status).
//
// The package also owns the wire-token registry that translates the
// short component tokens used in MQTT topic segments to catalog
// identifiers and back. Telemetry processors resolve inbound tokens
// with CatalogIdentifier; the rule engine resolves outbound targets
// with WireToken.
package component
