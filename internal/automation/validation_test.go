package automation

import (
	"errors"
	"strings"
	"testing"
)

func validRule() *Rule {
	target := "dep-actuator"
	return &Rule{
		ID:                 GenerateID(),
		Name:               "High temperature fan",
		SensorDeploymentID: "dep-sensor",
		Operator:           OpGreaterThan,
		ThresholdValue:     30,
		ActionType:         ActionTriggerActuator,
		TargetDeploymentID: &target,
		Active:             true,
		CooldownMinutes:    5,
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rule)
		wantErr error
	}{
		{
			name:   "valid actuator rule",
			mutate: func(*Rule) {},
		},
		{
			name: "valid alert rule",
			mutate: func(r *Rule) {
				r.ActionType = ActionCreateAlert
				r.TargetDeploymentID = nil
			},
		},
		{
			name:    "empty name",
			mutate:  func(r *Rule) { r.Name = "  " },
			wantErr: ErrInvalidName,
		},
		{
			name:    "name too long",
			mutate:  func(r *Rule) { r.Name = strings.Repeat("x", maxNameLength+1) },
			wantErr: ErrInvalidName,
		},
		{
			name:    "missing sensor deployment",
			mutate:  func(r *Rule) { r.SensorDeploymentID = "" },
			wantErr: ErrSensorRequired,
		},
		{
			name:    "unknown operator",
			mutate:  func(r *Rule) { r.Operator = "between" },
			wantErr: ErrInvalidOperator,
		},
		{
			name:    "unknown action type",
			mutate:  func(r *Rule) { r.ActionType = "send_email" },
			wantErr: ErrInvalidAction,
		},
		{
			name:    "actuator rule without target",
			mutate:  func(r *Rule) { r.TargetDeploymentID = nil },
			wantErr: ErrTargetRequired,
		},
		{
			name: "alert rule with bad severity",
			mutate: func(r *Rule) {
				r.ActionType = ActionCreateAlert
				sev := "catastrophic"
				r.AlertSeverity = &sev
			},
			wantErr: ErrInvalidAction,
		},
		{
			name:    "negative cooldown",
			mutate:  func(r *Rule) { r.CooldownMinutes = -1 },
			wantErr: ErrInvalidRule,
		},
		{
			name:    "cooldown beyond a day",
			mutate:  func(r *Rule) { r.CooldownMinutes = maxCooldownMins + 1 },
			wantErr: ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(rule)

			err := ValidateRule(rule)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRule() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRule_Nil(t *testing.T) {
	if err := ValidateRule(nil); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("ValidateRule(nil) error = %v, want ErrInvalidRule", err)
	}
}

func TestOperatorCompare(t *testing.T) {
	tests := []struct {
		op        Operator
		value     float64
		threshold float64
		want      bool
	}{
		{OpGreaterThan, 31, 30, true},
		{OpGreaterThan, 30, 30, false},
		{OpLessThan, 29, 30, true},
		{OpLessThan, 30, 30, false},
		{OpGreaterEqual, 30, 30, true},
		{OpGreaterEqual, 29.9, 30, false},
		{OpLessEqual, 30, 30, true},
		{OpLessEqual, 30.1, 30, false},
		{OpEqual, 30, 30, true},
		{OpEqual, 30.0001, 30, false},
		{OpNotEqual, 31, 30, true},
		{OpNotEqual, 30, 30, false},
	}

	for _, tt := range tests {
		if got := tt.op.Compare(tt.value, tt.threshold); got != tt.want {
			t.Errorf("%s.Compare(%g, %g) = %v, want %v", tt.op, tt.value, tt.threshold, got, tt.want)
		}
	}
}

// An operator the schema does not know must never fire an action.
func TestOperatorCompare_UnknownFailsClosed(t *testing.T) {
	if Operator("between").Compare(5, 5) {
		t.Error("unknown operator evaluated to true")
	}
	if Operator("").Compare(0, 0) {
		t.Error("empty operator evaluated to true")
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if len(id) != 36 {
		t.Errorf("GenerateID() length = %d, want 36", len(id))
	}
	if id == GenerateID() {
		t.Error("GenerateID() returned duplicate values")
	}
}
