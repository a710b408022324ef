package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
	"github.com/farmhub/farmhub-core/internal/infrastructure/influxdb"
)

// testConfig matches the local dev InfluxDB from docker-compose.yml.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "farmhub-dev-token",
		Org:           "farmhub",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1, // fast flush for test feedback
	}
}

// newTestClient connects to the dev InfluxDB or skips the test when it
// is not running. Cleanup closes the client.
func newTestClient(t *testing.T) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// errorCapture collects async write errors for later assertion.
type errorCapture struct {
	mu  sync.Mutex
	err error
}

func (e *errorCapture) install(client *influxdb.Client) {
	client.SetOnError(func(err error) {
		e.mu.Lock()
		e.err = err
		e.mu.Unlock()
	})
}

func (e *errorCapture) check(t *testing.T) {
	t.Helper()

	// Give the async error channel a moment to deliver.
	time.Sleep(100 * time.Millisecond)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		t.Errorf("async write error = %v", e.err)
	}
}

func TestConnect(t *testing.T) {
	client := newTestClient(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // nothing listens here

	if _, err := influxdb.Connect(cfg); err == nil {
		t.Fatal("Connect() should fail when the server is unreachable")
	}
}

func TestConnect_BatchSettingDefaults(t *testing.T) {
	// Zero and negative batch settings fall back to defaults rather
	// than breaking the uint conversion in the client options.
	for _, tc := range []struct {
		name          string
		batchSize     int
		flushInterval int
	}{
		{"zero", 0, 0},
		{"negative", -5, -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BatchSize = tc.batchSize
			cfg.FlushInterval = tc.flushInterval

			client, err := influxdb.Connect(cfg)
			if err != nil {
				t.Skip("InfluxDB not available, skipping integration test")
			}
			defer client.Close()

			if !client.IsConnected() {
				t.Error("IsConnected() = false")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should fail with a cancelled context")
	}
}

func TestWriteSensorReading(t *testing.T) {
	client := newTestClient(t)

	var capture errorCapture
	capture.install(client)

	client.WriteSensorReading("esp32-test-001", "dht11_sensor_temperature", 42.0, "celsius", time.Now())
	client.Flush()

	capture.check(t)
}

func TestWriteSensorReading_EmptyUnit(t *testing.T) {
	client := newTestClient(t)

	var capture errorCapture
	capture.install(client)

	// Readings without a known unit omit the unit tag entirely.
	client.WriteSensorReading("esp32-test-003", "pir_sensor", 1.0, "", time.Now())
	client.Flush()

	capture.check(t)
}

func TestWriteActuatorState(t *testing.T) {
	client := newTestClient(t)

	var capture errorCapture
	capture.install(client)

	client.WriteActuatorState("esp32-test-002", "ventilation_fan", 1)
	client.Flush()

	capture.check(t)
}

func TestWriteHealthScore(t *testing.T) {
	client := newTestClient(t)

	var capture errorCapture
	capture.install(client)

	client.WriteHealthScore(87.5, 3, 10, 4)
	client.Flush()

	capture.check(t)
}

func TestWritePoint(t *testing.T) {
	client := newTestClient(t)

	var capture errorCapture
	capture.install(client)

	client.WritePoint(
		"custom_measurement",
		map[string]string{"source": "test"},
		map[string]interface{}{"value": 99.9, "count": 5},
	)
	client.Flush()

	capture.check(t)
}

func TestWritePointWithTime(t *testing.T) {
	client := newTestClient(t)

	var capture errorCapture
	capture.install(client)

	client.WritePointWithTime(
		"custom_measurement",
		map[string]string{"source": "test-with-time"},
		map[string]interface{}{"value": 88.8},
		time.Now().Add(-1*time.Hour),
	)
	client.Flush()

	capture.check(t)
}

func TestClose(t *testing.T) {
	client, err := influxdb.Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}

	client.WriteSensorReading("close-test", "ldr_sensor", 1.0, "raw", time.Now())

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
