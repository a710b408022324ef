package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/farmhub/farmhub-core/internal/component"
)

// Health score weights. Devices and sensors dominate because a silent
// actuator is annoying but a silent sensor blinds the automation rules.
const (
	weightDevices   = 0.4
	weightSensors   = 0.4
	weightActuators = 0.2
)

// HealthSnapshot is a point-in-time view of fleet liveness with a
// weighted 0 to 100 score.
type HealthSnapshot struct {
	Score     float64     `json:"score"`
	Devices   ClassHealth `json:"devices"`
	Sensors   ClassHealth `json:"sensors"`
	Actuators ClassHealth `json:"actuators"`
	TakenAt   time.Time   `json:"taken_at"`
}

// ClassHealth summarises one class of the fleet.
type ClassHealth struct {
	Online int `json:"online"`
	Total  int `json:"total"`
}

// Percent returns the online share of the class, 0 to 100. An empty
// class reports 100; nothing in it can be unhealthy.
func (c ClassHealth) Percent() float64 {
	if c.Total == 0 {
		return 100
	}
	return float64(c.Online) / float64(c.Total) * 100
}

// Snapshot computes the current health snapshot from the stores.
func (m *Monitor) Snapshot(ctx context.Context) (HealthSnapshot, error) {
	deviceCounts, err := m.devices.CountByStatus(ctx)
	if err != nil {
		return HealthSnapshot{}, fmt.Errorf("counting devices: %w", err)
	}
	sensorCounts, err := m.components.CountByStatus(ctx, component.CategorySensor)
	if err != nil {
		return HealthSnapshot{}, fmt.Errorf("counting sensors: %w", err)
	}
	actuatorCounts, err := m.components.CountByStatus(ctx, component.CategoryActuator)
	if err != nil {
		return HealthSnapshot{}, fmt.Errorf("counting actuators: %w", err)
	}

	s := HealthSnapshot{
		Devices:   ClassHealth{Online: deviceCounts.Online, Total: deviceCounts.Total()},
		Sensors:   ClassHealth{Online: sensorCounts.Online, Total: sensorCounts.Total()},
		Actuators: ClassHealth{Online: actuatorCounts.Online, Total: actuatorCounts.Total()},
		TakenAt:   time.Now().UTC(),
	}
	s.Score = weightDevices*s.Devices.Percent() +
		weightSensors*s.Sensors.Percent() +
		weightActuators*s.Actuators.Percent()
	return s, nil
}
