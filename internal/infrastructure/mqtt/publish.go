package mqtt

import (
	"fmt"
)

// Broker-side message limits are typically 1MB; reject oversized
// payloads before they leave the process. Fleet payloads are tiny
// (a reading is under 100 bytes) so this only catches bugs.
const maxPayloadSize = 1 << 20

// Publish sends a payload to a topic and waits (bounded) for the
// broker to accept it.
//
// Actuator commands go out retained at QoS 1: retained so a device
// that reboots picks up its last commanded state straight away, QoS 1
// so the command survives a flaky link. Duplicates are harmless since
// setting a fan to "1" twice is idempotent on the firmware side.
//
//	topic := mqtt.NewTopics("farm").ActuatorCommand("esp32-A1", "fan1")
//	err := client.Publish(topic, []byte("1"), 1, true)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes retained at the configured default QoS,
// for state topics where late subscribers need the current value.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
