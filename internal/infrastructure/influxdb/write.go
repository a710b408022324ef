package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading mirrors a sensor reading into InfluxDB.
//
// This is the primary method for recording telemetry time series.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: MQTT identifier of the publishing device (e.g., "esp32-A1")
//   - component: Catalog identifier of the sensor (e.g., "dht11_sensor_temperature")
//   - value: The numeric reading
//   - unit: Unit of measure, empty if unknown
//   - recordedAt: When the reading was taken
//
// Example:
//
//	client.WriteSensorReading("esp32-A1", "dht11_sensor_temperature", 21.5, "celsius", time.Now())
func (c *Client) WriteSensorReading(deviceID, component string, value float64, unit string, recordedAt time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"device_id": deviceID,
		"component": component,
	}
	if unit != "" {
		tags["unit"] = unit
	}

	point := write.NewPoint(
		"sensor_readings",
		tags,
		map[string]interface{}{
			"value": value,
		},
		recordedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WriteActuatorState records an actuator state change echoed by a device.
//
// Parameters:
//   - deviceID: MQTT identifier of the device
//   - component: Catalog identifier of the actuator (e.g., "ventilation_fan")
//   - value: Numeric state (relay 0/1, servo angle)
func (c *Client) WriteActuatorState(deviceID, component string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"actuator_states",
		map[string]string{
			"device_id": deviceID,
			"component": component,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteHealthScore records a farm health snapshot.
//
// Parameters:
//   - score: Weighted health score, 0 to 100
//   - devicesOnline, sensorsOnline, actuatorsOnline: Online counts per class
func (c *Client) WriteHealthScore(score float64, devicesOnline, sensorsOnline, actuatorsOnline int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"farm_health",
		nil,
		map[string]interface{}{
			"score":            score,
			"devices_online":   devicesOnline,
			"sensors_online":   sensorsOnline,
			"actuators_online": actuatorsOnline,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
