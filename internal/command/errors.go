package command

import "errors"

// Sentinel errors for the command package.
// Callers should use errors.Is() to check against these values.
var (
	ErrInvalidParameter = errors.New("command: invalid parameter")
	ErrNotActuator      = errors.New("command: deployment is not an actuator")
)
