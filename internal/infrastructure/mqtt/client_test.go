package mqtt

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("farm")

	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "Sensor",
			builder: func() string {
				return topics.Sensor("esp32-A1", "temperature")
			},
			expected: "farm/esp32-A1/sensor/temperature",
		},
		{
			name: "ActuatorEcho",
			builder: func() string {
				return topics.ActuatorEcho("esp32-A1", "fan1")
			},
			expected: "farm/esp32-A1/actuator/fan1",
		},
		{
			name: "Status",
			builder: func() string {
				return topics.Status("esp32-A1")
			},
			expected: "farm/esp32-A1/status",
		},
		{
			name: "Heartbeat",
			builder: func() string {
				return topics.Heartbeat("esp32-A1")
			},
			expected: "farm/esp32-A1/heartbeat",
		},
		{
			name: "ActuatorCommand",
			builder: func() string {
				return topics.ActuatorCommand("esp32-A1", "servo")
			},
			expected: "farm/esp32-A1/actuator/servo/cmd",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return topics.SystemStatus()
			},
			expected: "farm/system/status",
		},
		{
			name: "AllSensors",
			builder: func() string {
				return topics.AllSensors()
			},
			expected: "farm/+/sensor/+",
		},
		{
			name: "AllActuatorEchoes",
			builder: func() string {
				return topics.AllActuatorEchoes()
			},
			expected: "farm/+/actuator/+",
		},
		{
			name: "AllStatuses",
			builder: func() string {
				return topics.AllStatuses()
			},
			expected: "farm/+/status",
		},
		{
			name: "AllHeartbeats",
			builder: func() string {
				return topics.AllHeartbeats()
			},
			expected: "farm/+/heartbeat",
		},
		{
			name: "AllTopics",
			builder: func() string {
				return topics.AllTopics()
			},
			expected: "farm/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestTopicBuilders_CustomNamespace(t *testing.T) {
	topics := NewTopics("greenhouse")

	got := topics.ActuatorCommand("esp32-B2", "pump")
	want := "greenhouse/esp32-B2/actuator/pump/cmd"
	if got != want {
		t.Errorf("ActuatorCommand() = %q, want %q", got, want)
	}

	if topics.AllSensors() != "greenhouse/+/sensor/+" {
		t.Errorf("AllSensors() = %q, want greenhouse prefix", topics.AllSensors())
	}
}

func TestNewTopics_EmptyNamespaceDefaults(t *testing.T) {
	topics := NewTopics("")

	if got := topics.Status("esp32-A1"); got != "farm/esp32-A1/status" {
		t.Errorf("Status() = %q, want default farm namespace", got)
	}

	// Zero value behaves the same as NewTopics("").
	if got := (Topics{}).Status("esp32-A1"); got != "farm/esp32-A1/status" {
		t.Errorf("zero-value Status() = %q, want default farm namespace", got)
	}
}

func TestParseTopic(t *testing.T) {
	topics := NewTopics("farm")

	tests := []struct {
		name  string
		topic string
		want  ParsedTopic
	}{
		{
			name:  "sensor with token",
			topic: "farm/esp32-A1/sensor/temperature",
			want:  ParsedTopic{Namespace: "farm", DeviceID: "esp32-A1", Kind: KindSensor, Token: "temperature"},
		},
		{
			name:  "actuator echo with token",
			topic: "farm/esp32-A1/actuator/fan1",
			want:  ParsedTopic{Namespace: "farm", DeviceID: "esp32-A1", Kind: KindActuator, Token: "fan1"},
		},
		{
			name:  "status",
			topic: "farm/esp32-A1/status",
			want:  ParsedTopic{Namespace: "farm", DeviceID: "esp32-A1", Kind: KindStatus},
		},
		{
			name:  "heartbeat",
			topic: "farm/esp32-A1/heartbeat",
			want:  ParsedTopic{Namespace: "farm", DeviceID: "esp32-A1", Kind: KindHeartbeat},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topics.ParseTopic(tt.topic)
			if err != nil {
				t.Fatalf("ParseTopic(%q) error = %v", tt.topic, err)
			}
			if got != tt.want {
				t.Errorf("ParseTopic(%q) = %+v, want %+v", tt.topic, got, tt.want)
			}
		})
	}
}

func TestParseTopic_Malformed(t *testing.T) {
	topics := NewTopics("farm")

	tests := []struct {
		name  string
		topic string
	}{
		{name: "empty", topic: ""},
		{name: "too few segments", topic: "farm/esp32-A1"},
		{name: "wrong namespace", topic: "barn/esp32-A1/status"},
		{name: "unknown kind", topic: "farm/esp32-A1/telemetry"},
		{name: "sensor without token", topic: "farm/esp32-A1/sensor"},
		{name: "status with trailing segment", topic: "farm/esp32-A1/status/extra"},
		{name: "outbound command topic", topic: "farm/esp32-A1/actuator/fan1/cmd"},
		{name: "empty device segment", topic: "farm//status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := topics.ParseTopic(tt.topic)
			if !errors.Is(err, ErrMalformedTopic) {
				t.Errorf("ParseTopic(%q) error = %v, want ErrMalformedTopic", tt.topic, err)
			}
		})
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

// disconnectedClient returns a client that was never connected.
// Validation paths run before any broker interaction.
func disconnectedClient() *Client {
	return &Client{subscriptions: make(map[string]subscription)}
}

func TestPublishEmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("", []byte("payload"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("farm/test", []byte("payload"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizePayload(t *testing.T) {
	c := disconnectedClient()

	payload := make([]byte, maxPayloadSize+1)
	err := c.Publish("farm/test", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("Publish() error = %v, want size detail", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Publish("farm/test", []byte("payload"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("farm/test", 5, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("farm/test", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribeDisconnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Subscribe("farm/test", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	c := disconnectedClient()

	err := c.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestUnsubscribeDisconnected(t *testing.T) {
	c := disconnectedClient()

	err := c.Unsubscribe("farm/test")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}

	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	c := disconnectedClient()

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}

func TestHasSubscription_NotSubscribed(t *testing.T) {
	c := disconnectedClient()

	if c.HasSubscription("farm/never/subscribed") {
		t.Error("HasSubscription() = true for untracked topic")
	}
}
