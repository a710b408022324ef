// Package mqtt provides MQTT client connectivity for FarmHub Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//   - Topic building and parsing for the farm namespace
//
// # Architecture
//
// FarmHub uses MQTT as the message bus between the Core and the
// field devices (ESP32 nodes carrying sensors and actuators). Devices
// publish telemetry under {namespace}/{deviceID}/{kind}[/{token}] and
// subscribe to {namespace}/{deviceID}/actuator/{token}/cmd for commands.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.Namespace)
//
//	// Subscribe to all sensor readings
//	err = client.Subscribe(topics.AllSensors(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	client.Publish(topics.ActuatorCommand("esp32-A1", "fan1"), []byte("1"), 1, true)
package mqtt
