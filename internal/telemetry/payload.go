package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SensorPayload is a decoded sensor message.
type SensorPayload struct {
	Value     float64
	Unit      string
	Timestamp *int64 // epoch seconds, optional
}

// RecordedAt resolves the reading time: the device-supplied timestamp
// when present, otherwise the broker arrival time.
func (p SensorPayload) RecordedAt(receivedAt time.Time) time.Time {
	if p.Timestamp != nil {
		return time.Unix(*p.Timestamp, 0).UTC()
	}
	return receivedAt.UTC()
}

// ParseSensorPayload decodes a sensor message. The payload must be a
// JSON object with a numeric value and a string unit.
func ParseSensorPayload(raw []byte) (SensorPayload, error) {
	var aux struct {
		Value     *float64 `json:"value"`
		Unit      *string  `json:"unit"`
		Timestamp *int64   `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return SensorPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if aux.Value == nil {
		return SensorPayload{}, fmt.Errorf("%w: missing numeric value", ErrMalformedPayload)
	}
	if aux.Unit == nil {
		return SensorPayload{}, fmt.Errorf("%w: missing unit", ErrMalformedPayload)
	}
	return SensorPayload{Value: *aux.Value, Unit: *aux.Unit, Timestamp: aux.Timestamp}, nil
}

// Echo is a decoded actuator echo: the device confirming the state it
// applied. Devices are heterogeneous, so the payload is decoded once
// here into a tagged form (Structured JSON or Raw string) and never
// re-parsed downstream.
type Echo struct {
	// Command is the canonical command string.
	Command string
	// Value is the numeric state, when one could be coerced.
	Value *float64
	// Structured reports whether the payload was a JSON object.
	Structured bool
}

// ParseActuatorEcho decodes an actuator echo. It never fails: a
// payload that matches nothing is kept as a raw command string with no
// numeric state.
//
// Numeric coercion is tri-level: a JSON object's numeric value field,
// then a numeric-string parse of the command, then case-insensitive
// "on"/"off" to 1/0. Anything else leaves the value unset.
func ParseActuatorEcho(raw []byte) Echo {
	trimmed := strings.TrimSpace(string(raw))

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		echo := Echo{Structured: true}

		switch cmd := obj["command"].(type) {
		case string:
			echo.Command = cmd
		case float64:
			echo.Command = formatNumber(cmd)
		}
		if echo.Command == "" {
			if v, ok := obj["value"].(float64); ok {
				echo.Command = formatNumber(v)
			}
		}

		if v, ok := obj["value"].(float64); ok {
			echo.Value = &v
		} else {
			echo.Value = coerceNumeric(echo.Command)
		}
		return echo
	}

	// Bare token. A JSON string or number payload lands here too once
	// unquoted.
	var scalar any
	if err := json.Unmarshal(raw, &scalar); err == nil {
		switch v := scalar.(type) {
		case string:
			trimmed = v
		case float64:
			trimmed = formatNumber(v)
		}
	}

	return Echo{Command: trimmed, Value: coerceNumeric(trimmed)}
}

// coerceNumeric maps a command string to a numeric state where one is
// implied. Returns nil when no coercion applies.
func coerceNumeric(s string) *float64 {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &v
	}
	switch strings.ToLower(s) {
	case "on":
		v := 1.0
		return &v
	case "off":
		v := 0.0
		return &v
	}
	return nil
}

// formatNumber renders a float the way devices send them: no exponent,
// no trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StatusPayload is a decoded device status message: an open set of
// health fields with a couple of well-known keys picked out.
type StatusPayload struct {
	Fields map[string]any
}

// ParseStatusPayload decodes a status message, which must be a JSON object.
func ParseStatusPayload(raw []byte) (StatusPayload, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return StatusPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if fields == nil {
		return StatusPayload{}, fmt.Errorf("%w: status payload must be an object", ErrMalformedPayload)
	}
	return StatusPayload{Fields: fields}, nil
}

// IPAddress returns the device-reported IP, if the payload carries one.
func (p StatusPayload) IPAddress() (string, bool) {
	for _, key := range []string{"ip", "ip_address"} {
		if v, ok := p.Fields[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Offline reports whether the payload declares the device offline,
// as a broker-delivered last will does.
func (p StatusPayload) Offline() bool {
	v, ok := p.Fields["status"].(string)
	return ok && strings.EqualFold(v, "offline")
}
