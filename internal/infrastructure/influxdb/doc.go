// Package influxdb provides InfluxDB connectivity for FarmHub Core.
//
// It wraps the official influxdb-client-go v2 library with FarmHub-specific
// patterns for connection management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Sensor readings mirrored from the ingestion pipeline
//   - Actuator state changes echoed by devices
//   - Farm health score snapshots
//
// SQLite remains the system of record; InfluxDB is an optional mirror
// for dashboarding and long-range queries. When disabled in config the
// rest of the system runs unchanged.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "farmhub",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("esp32-A1", "dht11_sensor_temperature", 21.5, "celsius", time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
