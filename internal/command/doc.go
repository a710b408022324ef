// Package command publishes actuator commands to devices and keeps the
// command log.
//
// Commands travel on {namespace}/{device}/actuator/{token}/cmd at QoS 1
// retained, so a device that reconnects picks up the last commanded
// state. Every delivery attempt is appended to the actuator_commands
// table with a delivered flag; a command that fails parameter
// validation is rejected before anything reaches the wire.
package command
