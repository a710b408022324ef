package monitor

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/farmhub/farmhub-core/internal/component"
	"github.com/farmhub/farmhub-core/internal/device"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			device_type TEXT NOT NULL DEFAULT 'esp32',
			model TEXT,
			ip_address TEXT,
			firmware_version TEXT,
			connection_status TEXT NOT NULL DEFAULT 'unknown',
			last_heartbeat_at TEXT,
			metadata TEXT NOT NULL DEFAULT '{}',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE component_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			identifier TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL CHECK (category IN ('sensor', 'actuator')),
			unit TEXT,
			description TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE component_deployments (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			component_type_id TEXT NOT NULL,
			location TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			connection_status TEXT NOT NULL DEFAULT 'unknown',
			last_value REAL,
			last_value_at TEXT,
			last_interaction_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			UNIQUE (device_id, component_type_id)
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// recordingHub captures broadcasts for assertions.
type recordingHub struct {
	mu     sync.Mutex
	events []hubEvent
}

type hubEvent struct {
	channel string
	payload any
}

func (h *recordingHub) Broadcast(channel string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, hubEvent{channel: channel, payload: payload})
}

func (h *recordingHub) channels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.channel
	}
	return out
}

type fixture struct {
	monitor    *Monitor
	hub        *recordingHub
	devices    *device.SQLiteRepository
	components *component.SQLiteRepository
}

func setupMonitor(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)

	devices := device.NewSQLiteRepository(db)
	components := component.NewSQLiteRepository(db)
	hub := &recordingHub{}

	m := New(Config{
		Devices:    devices,
		Components: components,
		Hub:        hub,
	})

	return &fixture{
		monitor:    m,
		hub:        hub,
		devices:    devices,
		components: components,
	}
}

func (f *fixture) seedDevice(t *testing.T, identifier string) *device.Device {
	t.Helper()
	d := &device.Device{
		ID:         device.GenerateID(),
		Identifier: identifier,
		Name:       "Node " + identifier,
		DeviceType: "esp32",
		Active:     true,
	}
	if err := f.devices.Create(context.Background(), d); err != nil {
		t.Fatalf("seeding device: %v", err)
	}
	return d
}

func (f *fixture) seedDeployment(t *testing.T, deviceID, typeIdentifier string, category component.Category) *component.Deployment {
	t.Helper()
	ctx := context.Background()
	ct := &component.ComponentType{
		ID:         component.GenerateID(),
		Name:       typeIdentifier,
		Identifier: typeIdentifier,
		Category:   category,
	}
	if err := f.components.CreateType(ctx, ct); err != nil {
		t.Fatalf("seeding component type: %v", err)
	}
	d := &component.Deployment{
		ID:              component.GenerateID(),
		DeviceID:        deviceID,
		ComponentTypeID: ct.ID,
		Active:          true,
	}
	if err := f.components.CreateDeployment(ctx, d); err != nil {
		t.Fatalf("seeding deployment: %v", err)
	}
	return d
}

func TestMonitor_SweepDemotesStaleDevice(t *testing.T) {
	f := setupMonitor(t)
	ctx := context.Background()

	stale := f.seedDevice(t, "esp32-A1")
	fresh := f.seedDevice(t, "esp32-B2")

	now := time.Now().UTC()
	if err := f.devices.UpdateConnectionStatus(ctx, stale.ID, device.StatusOnline, now.Add(-10*time.Minute)); err != nil {
		t.Fatalf("UpdateConnectionStatus() error = %v", err)
	}
	if err := f.devices.UpdateConnectionStatus(ctx, fresh.ID, device.StatusOnline, now.Add(-time.Minute)); err != nil {
		t.Fatalf("UpdateConnectionStatus() error = %v", err)
	}

	result := f.monitor.Sweep(ctx, now)

	if len(result.DevicesMarkedOffline) != 1 || result.DevicesMarkedOffline[0] != stale.ID {
		t.Errorf("DevicesMarkedOffline = %v, want [%s]", result.DevicesMarkedOffline, stale.ID)
	}

	got, err := f.devices.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ConnectionStatus != device.StatusOffline {
		t.Errorf("stale device status = %q, want offline", got.ConnectionStatus)
	}
	got, err = f.devices.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ConnectionStatus != device.StatusOnline {
		t.Errorf("fresh device status = %q, want online", got.ConnectionStatus)
	}
}

func TestMonitor_SweepDemotesStaleDeployment(t *testing.T) {
	f := setupMonitor(t)
	ctx := context.Background()

	dev := f.seedDevice(t, "esp32-A1")
	stale := f.seedDeployment(t, dev.ID, "dht11_sensor_temperature", component.CategorySensor)
	fresh := f.seedDeployment(t, dev.ID, "ventilation_fan", component.CategoryActuator)

	now := time.Now().UTC()
	if err := f.components.RecordValue(ctx, stale.ID, 21.0, now.Add(-5*time.Minute)); err != nil {
		t.Fatalf("RecordValue() error = %v", err)
	}
	if err := f.components.Touch(ctx, fresh.ID, now.Add(-10*time.Second)); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	result := f.monitor.Sweep(ctx, now)

	if len(result.DeploymentsMarkedOffline) != 1 || result.DeploymentsMarkedOffline[0] != stale.ID {
		t.Errorf("DeploymentsMarkedOffline = %v, want [%s]", result.DeploymentsMarkedOffline, stale.ID)
	}

	got, err := f.components.GetDeployment(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetDeployment() error = %v", err)
	}
	if got.ConnectionStatus != component.StatusOnline {
		t.Errorf("fresh deployment status = %q, want online", got.ConnectionStatus)
	}
}

// A second sweep right after the first finds nothing to demote.
func TestMonitor_SweepIdempotent(t *testing.T) {
	f := setupMonitor(t)
	ctx := context.Background()

	dev := f.seedDevice(t, "esp32-A1")
	deploy := f.seedDeployment(t, dev.ID, "pir_sensor", component.CategorySensor)

	now := time.Now().UTC()
	if err := f.devices.UpdateConnectionStatus(ctx, dev.ID, device.StatusOnline, now.Add(-time.Hour)); err != nil {
		t.Fatalf("UpdateConnectionStatus() error = %v", err)
	}
	if err := f.components.RecordValue(ctx, deploy.ID, 1, now.Add(-time.Hour)); err != nil {
		t.Fatalf("RecordValue() error = %v", err)
	}

	first := f.monitor.Sweep(ctx, now)
	if len(first.DevicesMarkedOffline) != 1 || len(first.DeploymentsMarkedOffline) != 1 {
		t.Fatalf("first sweep = %+v, want one demotion each", first)
	}

	second := f.monitor.Sweep(ctx, now)
	if len(second.DevicesMarkedOffline) != 0 || len(second.DeploymentsMarkedOffline) != 0 {
		t.Errorf("second sweep = %+v, want no demotions", second)
	}
}

func TestMonitor_SweepBroadcasts(t *testing.T) {
	f := setupMonitor(t)
	ctx := context.Background()

	dev := f.seedDevice(t, "esp32-A1")
	now := time.Now().UTC()
	if err := f.devices.UpdateConnectionStatus(ctx, dev.ID, device.StatusOnline, now.Add(-time.Hour)); err != nil {
		t.Fatalf("UpdateConnectionStatus() error = %v", err)
	}

	f.monitor.Sweep(ctx, now)

	channels := f.hub.channels()
	var sawStatus, sawHealth bool
	for _, ch := range channels {
		switch ch {
		case "device.status":
			sawStatus = true
		case "health.snapshot":
			sawHealth = true
		}
	}
	if !sawStatus || !sawHealth {
		t.Errorf("broadcast channels = %v, want device.status and health.snapshot", channels)
	}
}

func TestMonitor_Snapshot(t *testing.T) {
	f := setupMonitor(t)
	ctx := context.Background()

	online := f.seedDevice(t, "esp32-A1")
	f.seedDevice(t, "esp32-B2") // stays unknown

	now := time.Now().UTC()
	if err := f.devices.UpdateConnectionStatus(ctx, online.ID, device.StatusOnline, now); err != nil {
		t.Fatalf("UpdateConnectionStatus() error = %v", err)
	}

	sensor := f.seedDeployment(t, online.ID, "dht11_sensor_temperature", component.CategorySensor)
	f.seedDeployment(t, online.ID, "water_level_sensor", component.CategorySensor)
	if err := f.components.RecordValue(ctx, sensor.ID, 20, now); err != nil {
		t.Fatalf("RecordValue() error = %v", err)
	}

	snapshot, err := f.monitor.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if snapshot.Devices.Online != 1 || snapshot.Devices.Total != 2 {
		t.Errorf("Devices = %+v, want 1/2", snapshot.Devices)
	}
	if snapshot.Sensors.Online != 1 || snapshot.Sensors.Total != 2 {
		t.Errorf("Sensors = %+v, want 1/2", snapshot.Sensors)
	}
	if snapshot.Actuators.Total != 0 {
		t.Errorf("Actuators = %+v, want empty", snapshot.Actuators)
	}

	// 0.4*50 (devices) + 0.4*50 (sensors) + 0.2*100 (no actuators).
	want := 60.0
	if math.Abs(snapshot.Score-want) > 0.001 {
		t.Errorf("Score = %v, want %v", snapshot.Score, want)
	}
}

func TestMonitor_SnapshotEmptyFleet(t *testing.T) {
	f := setupMonitor(t)

	snapshot, err := f.monitor.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snapshot.Score != 100 {
		t.Errorf("Score = %v, want 100 for empty fleet", snapshot.Score)
	}
}

func TestClassHealth_Percent(t *testing.T) {
	tests := []struct {
		online, total int
		want          float64
	}{
		{0, 0, 100},
		{0, 4, 0},
		{2, 4, 50},
		{4, 4, 100},
	}
	for _, tt := range tests {
		got := ClassHealth{Online: tt.online, Total: tt.total}.Percent()
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("Percent(%d/%d) = %v, want %v", tt.online, tt.total, got, tt.want)
		}
	}
}

func TestMonitor_StartStop(t *testing.T) {
	f := setupMonitor(t)

	f.monitor.Start(context.Background())
	f.monitor.Stop()
	// Stop twice must not panic or hang.
	f.monitor.Stop()
}

func TestMonitor_Defaults(t *testing.T) {
	m := New(Config{})
	if m.sweepInterval != DefaultSweepInterval {
		t.Errorf("sweepInterval = %v", m.sweepInterval)
	}
	if m.deviceWindow != DefaultDeviceOfflineAfter {
		t.Errorf("deviceWindow = %v", m.deviceWindow)
	}
	if m.componentWindow != DefaultComponentOfflineAfter {
		t.Errorf("componentWindow = %v", m.componentWindow)
	}
}
