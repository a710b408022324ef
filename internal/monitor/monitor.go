package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/farmhub/farmhub-core/internal/component"
	"github.com/farmhub/farmhub-core/internal/device"
)

// Default liveness windows. A device is expected to heartbeat well
// inside five minutes; deployments go quiet faster because every
// reading or echo refreshes them.
const (
	DefaultSweepInterval         = 60 * time.Second
	DefaultDeviceOfflineAfter    = 300 * time.Second
	DefaultComponentOfflineAfter = 60 * time.Second
)

// DeviceStore is the slice of the device repository the monitor needs.
type DeviceStore interface {
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error)
	CountByStatus(ctx context.Context) (device.StatusCounts, error)
}

// ComponentStore is the slice of the component repository the monitor needs.
type ComponentStore interface {
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error)
	CountByStatus(ctx context.Context, category component.Category) (component.StatusCounts, error)
}

// HealthWriter mirrors health snapshots into a time series store.
type HealthWriter interface {
	WriteHealthScore(score float64, devicesOnline, sensorsOnline, actuatorsOnline int)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Logger is the interface for monitor logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SweepResult reports what one liveness pass changed and observed.
type SweepResult struct {
	DevicesMarkedOffline     []string       `json:"devices_marked_offline,omitempty"`
	DeploymentsMarkedOffline []string       `json:"deployments_marked_offline,omitempty"`
	Health                   HealthSnapshot `json:"health"`
}

// Monitor periodically demotes silent devices and deployments to
// offline and publishes a fleet health snapshot. It is the only writer
// of the online to offline transition; message processors own the
// reverse direction.
type Monitor struct {
	devices    DeviceStore
	components ComponentStore
	health     HealthWriter // optional
	hub        WSHub        // optional
	logger     Logger

	sweepInterval   time.Duration
	deviceWindow    time.Duration
	componentWindow time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Config bundles the monitor's dependencies. Zero intervals fall back
// to the defaults.
type Config struct {
	Devices    DeviceStore
	Components ComponentStore
	Health     HealthWriter
	Hub        WSHub
	Logger     Logger

	SweepInterval         time.Duration
	DeviceOfflineAfter    time.Duration
	ComponentOfflineAfter time.Duration
}

// New creates a Monitor. Call Start to begin sweeping.
func New(cfg Config) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	m := &Monitor{
		devices:         cfg.Devices,
		components:      cfg.Components,
		health:          cfg.Health,
		hub:             cfg.Hub,
		logger:          logger,
		sweepInterval:   cfg.SweepInterval,
		deviceWindow:    cfg.DeviceOfflineAfter,
		componentWindow: cfg.ComponentOfflineAfter,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	if m.sweepInterval <= 0 {
		m.sweepInterval = DefaultSweepInterval
	}
	if m.deviceWindow <= 0 {
		m.deviceWindow = DefaultDeviceOfflineAfter
	}
	if m.componentWindow <= 0 {
		m.componentWindow = DefaultComponentOfflineAfter
	}
	return m
}

// Start launches the background sweep loop. The loop stops when Stop
// is called or the context is cancelled; a sweep in progress always
// runs to completion.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		defer close(m.done)

		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()

		m.logger.Info("liveness monitor started",
			"sweep_interval", m.sweepInterval.String(),
			"device_window", m.deviceWindow.String(),
			"component_window", m.componentWindow.String(),
		)

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case now := <-ticker.C:
				m.Sweep(ctx, now.UTC())
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit. Safe to call
// more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

// Sweep runs one liveness pass: demote stale devices and deployments,
// then compute and publish a health snapshot. Errors are logged, not
// returned to the caller loop; a failed sweep is retried at the next
// tick.
func (m *Monitor) Sweep(ctx context.Context, now time.Time) SweepResult {
	var result SweepResult

	deviceIDs, err := m.devices.MarkStaleOffline(ctx, now.Add(-m.deviceWindow))
	if err != nil {
		m.logger.Error("device liveness sweep failed", "error", err)
	} else {
		result.DevicesMarkedOffline = deviceIDs
		for _, id := range deviceIDs {
			m.logger.Info("device marked offline", "device_id", id)
			if m.hub != nil {
				m.hub.Broadcast("device.status", map[string]any{
					"device_id": id,
					"status":    string(device.StatusOffline),
				})
			}
		}
	}

	deploymentIDs, err := m.components.MarkStaleOffline(ctx, now.Add(-m.componentWindow))
	if err != nil {
		m.logger.Error("deployment liveness sweep failed", "error", err)
	} else {
		result.DeploymentsMarkedOffline = deploymentIDs
		for _, id := range deploymentIDs {
			m.logger.Info("deployment marked offline", "deployment_id", id)
			if m.hub != nil {
				m.hub.Broadcast("deployment.status", map[string]any{
					"deployment_id": id,
					"status":        string(component.StatusOffline),
				})
			}
		}
	}

	snapshot, err := m.Snapshot(ctx)
	if err != nil {
		m.logger.Error("health snapshot failed", "error", err)
		return result
	}
	result.Health = snapshot

	if m.health != nil {
		m.health.WriteHealthScore(snapshot.Score,
			snapshot.Devices.Online,
			snapshot.Sensors.Online,
			snapshot.Actuators.Online,
		)
	}
	if m.hub != nil {
		m.hub.Broadcast("health.snapshot", snapshot)
	}

	return result
}
