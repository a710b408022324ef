package automation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxDescriptionLen = 500
	maxParameterKeys  = 20
	maxCooldownMins   = 1440 // 24 hours
)

// Pre-computed validation sets for O(1) lookups.
var (
	validOperators  map[Operator]struct{}
	validSeverities = map[string]struct{}{
		"info":     {},
		"warning":  {},
		"critical": {},
	}
)

func init() {
	validOperators = make(map[Operator]struct{}, len(AllOperators()))
	for _, op := range AllOperators() {
		validOperators[op] = struct{}{}
	}
}

// ValidateRule performs structural validation on a rule.
// Returns an error describing the first validation failure found.
//
// Category checks (the sensor deployment being a sensor, the target
// being an actuator) need a deployment lookup and live on the Registry.
func ValidateRule(r *Rule) error {
	if r == nil {
		return ErrInvalidRule
	}

	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidRule, maxDescriptionLen)
	}

	if strings.TrimSpace(r.SensorDeploymentID) == "" {
		return ErrSensorRequired
	}
	if _, ok := validOperators[r.Operator]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidOperator, r.Operator)
	}

	switch r.ActionType {
	case ActionTriggerActuator:
		if r.TargetDeploymentID == nil || strings.TrimSpace(*r.TargetDeploymentID) == "" {
			return ErrTargetRequired
		}
		if len(r.ActuatorParameters) > maxParameterKeys {
			return fmt.Errorf("%w: parameters exceeds %d keys", ErrInvalidAction, maxParameterKeys)
		}
	case ActionCreateAlert:
		if r.AlertSeverity != nil && *r.AlertSeverity != "" {
			if _, ok := validSeverities[*r.AlertSeverity]; !ok {
				return fmt.Errorf("%w: invalid severity %q", ErrInvalidAction, *r.AlertSeverity)
			}
		}
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, r.ActionType)
	}

	if r.CooldownMinutes < 0 || r.CooldownMinutes > maxCooldownMins {
		return fmt.Errorf("%w: cooldown_minutes must be 0-%d", ErrInvalidRule, maxCooldownMins)
	}

	return nil
}

// ValidateName checks if a rule name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID creates a new UUID for a rule or alert.
func GenerateID() string {
	return uuid.New().String()
}
