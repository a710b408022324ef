package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestParseSensorPayload(t *testing.T) {
	payload, err := ParseSensorPayload([]byte(`{"value": 23.5, "unit": "celsius"}`))
	if err != nil {
		t.Fatalf("ParseSensorPayload() error = %v", err)
	}
	if payload.Value != 23.5 {
		t.Errorf("Value = %g, want 23.5", payload.Value)
	}
	if payload.Unit != "celsius" {
		t.Errorf("Unit = %q, want celsius", payload.Unit)
	}
	if payload.Timestamp != nil {
		t.Errorf("Timestamp = %v, want nil", payload.Timestamp)
	}
}

func TestParseSensorPayload_DeviceTimestamp(t *testing.T) {
	payload, err := ParseSensorPayload([]byte(`{"value": 1, "unit": "percent", "timestamp": 1700000000}`))
	if err != nil {
		t.Fatalf("ParseSensorPayload() error = %v", err)
	}

	received := time.Now().UTC()
	got := payload.RecordedAt(received)
	want := time.Unix(1700000000, 0).UTC()
	if !got.Equal(want) {
		t.Errorf("RecordedAt() = %v, want device timestamp %v", got, want)
	}

	// Without a device timestamp the arrival time wins.
	payload.Timestamp = nil
	if got := payload.RecordedAt(received); !got.Equal(received) {
		t.Errorf("RecordedAt() = %v, want arrival time %v", got, received)
	}
}

func TestParseSensorPayload_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "hello"},
		{"missing value", `{"unit": "celsius"}`},
		{"missing unit", `{"value": 1}`},
		{"string value", `{"value": "high", "unit": "celsius"}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSensorPayload([]byte(tt.payload)); !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("ParseSensorPayload(%q) error = %v, want ErrMalformedPayload", tt.payload, err)
			}
		})
	}
}

func TestParseActuatorEcho(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name        string
		payload     string
		wantCommand string
		wantValue   *float64
		structured  bool
	}{
		{"json command and value", `{"command": "1", "value": 1}`, "1", f(1), true},
		{"json command only", `{"command": "on"}`, "on", f(1), true},
		{"json value only", `{"value": 90}`, "90", f(90), true},
		{"json non-numeric command", `{"command": "open"}`, "open", nil, true},
		{"bare number", `42`, "42", f(42), false},
		{"bare numeric string", `0.5`, "0.5", f(0.5), false},
		{"quoted on", `"on"`, "on", f(1), false},
		{"bare on", `on`, "on", f(1), false},
		{"bare OFF", `OFF`, "OFF", f(0), false},
		{"unknown token", `open`, "open", nil, false},
		{"whitespace trimmed", `  1  `, "1", f(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			echo := ParseActuatorEcho([]byte(tt.payload))
			if echo.Command != tt.wantCommand {
				t.Errorf("Command = %q, want %q", echo.Command, tt.wantCommand)
			}
			if echo.Structured != tt.structured {
				t.Errorf("Structured = %v, want %v", echo.Structured, tt.structured)
			}
			switch {
			case tt.wantValue == nil && echo.Value != nil:
				t.Errorf("Value = %g, want nil", *echo.Value)
			case tt.wantValue != nil && echo.Value == nil:
				t.Errorf("Value = nil, want %g", *tt.wantValue)
			case tt.wantValue != nil && *echo.Value != *tt.wantValue:
				t.Errorf("Value = %g, want %g", *echo.Value, *tt.wantValue)
			}
		})
	}
}

func TestParseStatusPayload(t *testing.T) {
	payload, err := ParseStatusPayload([]byte(`{"uptime": 3600, "ip": "192.168.1.40", "rssi": -61}`))
	if err != nil {
		t.Fatalf("ParseStatusPayload() error = %v", err)
	}
	if payload.Fields["uptime"] != float64(3600) {
		t.Errorf("uptime = %v", payload.Fields["uptime"])
	}

	ip, ok := payload.IPAddress()
	if !ok || ip != "192.168.1.40" {
		t.Errorf("IPAddress() = %q, %v", ip, ok)
	}
	if payload.Offline() {
		t.Error("Offline() = true for a healthy payload")
	}
}

func TestParseStatusPayload_Offline(t *testing.T) {
	payload, err := ParseStatusPayload([]byte(`{"status": "offline"}`))
	if err != nil {
		t.Fatalf("ParseStatusPayload() error = %v", err)
	}
	if !payload.Offline() {
		t.Error("Offline() = false for a last-will payload")
	}
}

func TestParseStatusPayload_Malformed(t *testing.T) {
	for _, payload := range []string{"offline", `[]`, `"x"`, ""} {
		if _, err := ParseStatusPayload([]byte(payload)); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("ParseStatusPayload(%q) error = %v, want ErrMalformedPayload", payload, err)
		}
	}
}
