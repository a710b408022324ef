package automation

import "time"

// Operator compares a sensor reading against a rule threshold.
type Operator string

const (
	OpGreaterThan  Operator = "gt"
	OpLessThan     Operator = "lt"
	OpGreaterEqual Operator = "gte"
	OpLessEqual    Operator = "lte"
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "neq"
)

// AllOperators returns all valid comparison operators.
func AllOperators() []Operator {
	return []Operator{
		OpGreaterThan,
		OpLessThan,
		OpGreaterEqual,
		OpLessEqual,
		OpEqual,
		OpNotEqual,
	}
}

// Compare evaluates value against threshold. Unrecognised operators
// evaluate to false so a corrupt rule can never fire an action.
func (o Operator) Compare(value, threshold float64) bool {
	switch o {
	case OpGreaterThan:
		return value > threshold
	case OpLessThan:
		return value < threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return value == threshold
	case OpNotEqual:
		return value != threshold
	default:
		return false
	}
}

// ActionType selects what a rule does when its condition matches.
type ActionType string

const (
	ActionTriggerActuator ActionType = "trigger_actuator"
	ActionCreateAlert     ActionType = "create_alert"
)

// Defaults applied when a rule omits the optional action fields.
const (
	DefaultCooldownMinutes = 5
	DefaultCommand         = "1"
	DefaultAlertTitle      = "Automation Alert"
	DefaultAlertSeverity   = "warning"
)

// Rule binds a sensor deployment to a threshold condition and an action.
//
// A rule fires when a reading from its sensor deployment satisfies
// Operator against ThresholdValue and the cooldown window has elapsed.
// Depending on ActionType it either publishes a command to the target
// actuator deployment or records an alert.
type Rule struct {
	// Identity
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`

	// Condition
	SensorDeploymentID string   `json:"sensor_deployment_id"`
	Operator           Operator `json:"operator"`
	ThresholdValue     float64  `json:"threshold_value"`

	// Action
	ActionType         ActionType     `json:"action_type"`
	TargetDeploymentID *string        `json:"target_deployment_id,omitempty"` // trigger_actuator only
	ActuatorCommand    *string        `json:"actuator_command,omitempty"`     // default "1"
	ActuatorParameters map[string]any `json:"actuator_parameters,omitempty"`
	AlertTitle         *string        `json:"alert_title,omitempty"`    // default "Automation Alert"
	AlertMessage       *string        `json:"alert_message,omitempty"`  // default built from the rule condition
	AlertSeverity      *string        `json:"alert_severity,omitempty"` // default "warning"

	// Scheduling
	Active          bool       `json:"active"`
	CooldownMinutes int        `json:"cooldown_minutes"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`

	// Audit
	CreatedBy *string   `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InCooldown reports whether the rule fired within its cooldown window
// as of now. Rules that have never fired are not in cooldown.
func (r *Rule) InCooldown(now time.Time) bool {
	if r.LastTriggeredAt == nil {
		return false
	}
	window := time.Duration(r.CooldownMinutes) * time.Minute
	return now.Sub(*r.LastTriggeredAt) < window
}

// Command returns the actuator command, falling back to the default.
func (r *Rule) Command() string {
	if r.ActuatorCommand != nil && *r.ActuatorCommand != "" {
		return *r.ActuatorCommand
	}
	return DefaultCommand
}

// DeepCopy creates a complete independent copy of the Rule.
// All pointer and map fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (r *Rule) DeepCopy() *Rule {
	if r == nil {
		return nil
	}

	cpy := *r

	cpy.Description = cloneStringPtr(r.Description)
	cpy.TargetDeploymentID = cloneStringPtr(r.TargetDeploymentID)
	cpy.ActuatorCommand = cloneStringPtr(r.ActuatorCommand)
	cpy.AlertTitle = cloneStringPtr(r.AlertTitle)
	cpy.AlertMessage = cloneStringPtr(r.AlertMessage)
	cpy.AlertSeverity = cloneStringPtr(r.AlertSeverity)
	cpy.CreatedBy = cloneStringPtr(r.CreatedBy)

	if r.LastTriggeredAt != nil {
		t := *r.LastTriggeredAt
		cpy.LastTriggeredAt = &t
	}
	if r.ActuatorParameters != nil {
		cpy.ActuatorParameters = deepCopyMap(r.ActuatorParameters)
	}

	return &cpy
}

// Alert is a persisted notification, either raised by a rule or
// recorded directly when the pipeline sees something abnormal.
type Alert struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Severity     string    `json:"severity"`
	RuleID       *string   `json:"rule_id,omitempty"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
