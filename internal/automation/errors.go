package automation

import "errors"

// Sentinel errors for the automation package.
// Callers should use errors.Is() to check against these values.
var (
	ErrRuleNotFound    = errors.New("automation: rule not found")
	ErrAlertNotFound   = errors.New("automation: alert not found")
	ErrInvalidRule     = errors.New("automation: invalid rule")
	ErrInvalidName     = errors.New("automation: invalid name")
	ErrInvalidOperator = errors.New("automation: invalid operator")
	ErrInvalidAction   = errors.New("automation: invalid action")
	ErrSensorRequired  = errors.New("automation: rule requires a sensor deployment")
	ErrTargetRequired  = errors.New("automation: trigger_actuator requires an actuator target")
)
