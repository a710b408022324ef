package telemetry

import (
	"context"
	"time"

	"github.com/farmhub/farmhub-core/internal/command"
	"github.com/farmhub/farmhub-core/internal/component"
	"github.com/farmhub/farmhub-core/internal/device"
	mqttinfra "github.com/farmhub/farmhub-core/internal/infrastructure/mqtt"
)

// RuleEvaluator is the interface the pipeline needs from the rule
// engine. Evaluation is synchronous: it completes before the worker
// picks up the next message, which is what keeps cooldowns ordered.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, sensorDeploymentID string, value float64, at time.Time) int
}

// MetricsWriter mirrors readings and actuator states into a time
// series store. Writes are fire-and-forget; SQLite remains the system
// of record.
type MetricsWriter interface {
	WriteSensorReading(deviceID, componentID string, value float64, unit string, recordedAt time.Time)
	WriteActuatorState(deviceID, componentID string, value float64)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Pipeline classifies inbound messages and applies them to durable
// state. It is the Processor behind the ingestion worker: exactly one
// Process call runs at a time.
//
// Every failure mode here is terminal for the message and non-fatal
// for the pipeline: malformed input and unprovisioned references are
// logged at warning and dropped, store failures at error.
type Pipeline struct {
	topics     mqttinfra.Topics
	devices    device.Repository
	components component.Repository
	readings   Repository
	commands   command.Repository
	rules      RuleEvaluator
	metrics    MetricsWriter // optional
	hub        WSHub         // optional
	logger     Logger
}

// PipelineConfig collects the pipeline's collaborators.
type PipelineConfig struct {
	Topics     mqttinfra.Topics
	Devices    device.Repository
	Components component.Repository
	Readings   Repository
	Commands   command.Repository
	Rules      RuleEvaluator
	Metrics    MetricsWriter
	Hub        WSHub
	Logger     Logger
}

// NewPipeline creates a message pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Pipeline{
		topics:     cfg.Topics,
		devices:    cfg.Devices,
		components: cfg.Components,
		readings:   cfg.Readings,
		commands:   cfg.Commands,
		rules:      cfg.Rules,
		metrics:    cfg.Metrics,
		hub:        cfg.Hub,
		logger:     logger,
	}
}

// Process routes one inbound message by kind.
func (p *Pipeline) Process(ctx context.Context, msg Message) {
	parsed, err := p.topics.ParseTopic(msg.Topic)
	if err != nil {
		p.logger.Warn("dropping message with malformed topic",
			"topic", msg.Topic,
			"error", err,
		)
		return
	}

	switch parsed.Kind {
	case mqttinfra.KindSensor:
		p.processSensor(ctx, parsed, msg)
	case mqttinfra.KindActuator:
		p.processEcho(ctx, parsed, msg)
	case mqttinfra.KindStatus:
		p.processStatus(ctx, parsed, msg)
	case mqttinfra.KindHeartbeat:
		p.processHeartbeat(ctx, parsed, msg)
	}
}

// processSensor appends a reading, refreshes deployment and device
// liveness, and hands the value to the rule engine.
func (p *Pipeline) processSensor(ctx context.Context, parsed mqttinfra.ParsedTopic, msg Message) {
	payload, err := ParseSensorPayload(msg.Payload)
	if err != nil {
		p.logger.Warn("dropping malformed sensor payload",
			"topic", msg.Topic,
			"payload", string(msg.Payload),
			"error", err,
		)
		return
	}

	detail, ok := p.findDeployment(ctx, parsed)
	if !ok {
		return
	}

	recordedAt := payload.RecordedAt(msg.ReceivedAt)
	reading := &Reading{
		ID:           GenerateID(),
		DeploymentID: detail.ID,
		Value:        payload.Value,
		Unit:         payload.Unit,
		RecordedAt:   recordedAt,
	}
	if err := p.readings.Append(ctx, reading); err != nil {
		p.logger.Error("failed to store reading",
			"topic", msg.Topic,
			"deployment_id", detail.ID,
			"error", err,
		)
		return
	}

	// Value write and offline-to-online transition are one update.
	if err := p.components.RecordValue(ctx, detail.ID, payload.Value, recordedAt); err != nil {
		p.logger.Error("failed to update deployment state",
			"deployment_id", detail.ID,
			"error", err,
		)
	}
	p.markDeviceSeen(ctx, detail.DeviceID, parsed.DeviceID, msg.ReceivedAt)

	if p.metrics != nil {
		p.metrics.WriteSensorReading(parsed.DeviceID, detail.ComponentIdentifier, payload.Value, payload.Unit, recordedAt)
	}
	if p.hub != nil {
		p.hub.Broadcast("sensor.reading", map[string]any{
			"deployment_id": detail.ID,
			"device":        parsed.DeviceID,
			"component":     detail.ComponentIdentifier,
			"value":         payload.Value,
			"unit":          payload.Unit,
			"recorded_at":   recordedAt,
		})
	}

	if p.rules != nil {
		p.rules.Evaluate(ctx, detail.ID, payload.Value, recordedAt)
	}
}

// processEcho logs a device-originated actuator state change and
// refreshes deployment state.
func (p *Pipeline) processEcho(ctx context.Context, parsed mqttinfra.ParsedTopic, msg Message) {
	echo := ParseActuatorEcho(msg.Payload)
	if echo.Command == "" {
		p.logger.Warn("dropping empty actuator echo",
			"topic", msg.Topic,
			"payload", string(msg.Payload),
		)
		return
	}

	detail, ok := p.findDeployment(ctx, parsed)
	if !ok {
		return
	}

	rec := &command.Record{
		ID:           command.GenerateID(),
		DeploymentID: detail.ID,
		Command:      echo.Command,
		Source:       command.SourceDevice,
		Delivered:    true,
		RecordedAt:   msg.ReceivedAt.UTC(),
	}
	if err := p.commands.Append(ctx, rec); err != nil {
		p.logger.Error("failed to log actuator echo",
			"deployment_id", detail.ID,
			"error", err,
		)
	}

	var stateErr error
	if echo.Value != nil {
		stateErr = p.components.RecordValue(ctx, detail.ID, *echo.Value, msg.ReceivedAt)
	} else {
		stateErr = p.components.Touch(ctx, detail.ID, msg.ReceivedAt)
	}
	if stateErr != nil {
		p.logger.Error("failed to update deployment state",
			"deployment_id", detail.ID,
			"error", stateErr,
		)
	}
	p.markDeviceSeen(ctx, detail.DeviceID, parsed.DeviceID, msg.ReceivedAt)

	if p.metrics != nil && echo.Value != nil {
		p.metrics.WriteActuatorState(parsed.DeviceID, detail.ComponentIdentifier, *echo.Value)
	}
	if p.hub != nil {
		p.hub.Broadcast("actuator.state", map[string]any{
			"deployment_id": detail.ID,
			"device":        parsed.DeviceID,
			"component":     detail.ComponentIdentifier,
			"command":       echo.Command,
			"value":         echo.Value,
		})
	}
}

// processStatus merges device health fields and refreshes liveness.
// A last-will payload declaring the device offline demotes it instead.
func (p *Pipeline) processStatus(ctx context.Context, parsed mqttinfra.ParsedTopic, msg Message) {
	payload, err := ParseStatusPayload(msg.Payload)
	if err != nil {
		p.logger.Warn("dropping malformed status payload",
			"topic", msg.Topic,
			"payload", string(msg.Payload),
			"error", err,
		)
		return
	}

	dev, err := p.devices.GetByIdentifier(ctx, parsed.DeviceID)
	if err != nil {
		p.logger.Warn("dropping status from unknown device",
			"device", parsed.DeviceID,
			"error", err,
		)
		return
	}

	if dev.Metadata == nil {
		dev.Metadata = device.Metadata{}
	}
	for k, v := range payload.Fields {
		dev.Metadata[k] = v
	}
	if ip, ok := payload.IPAddress(); ok {
		dev.IPAddress = &ip
	}
	if err := p.devices.Update(ctx, dev); err != nil {
		p.logger.Error("failed to update device status fields",
			"device", parsed.DeviceID,
			"error", err,
		)
	}

	status := device.StatusOnline
	if payload.Offline() {
		status = device.StatusOffline
	}
	if err := p.devices.UpdateConnectionStatus(ctx, dev.ID, status, msg.ReceivedAt); err != nil {
		p.logger.Error("failed to update device liveness",
			"device", parsed.DeviceID,
			"error", err,
		)
	}

	if p.hub != nil {
		p.hub.Broadcast("device.status", map[string]any{
			"device": parsed.DeviceID,
			"status": string(status),
		})
	}
}

// processHeartbeat refreshes device liveness only; the payload is
// ignored.
func (p *Pipeline) processHeartbeat(ctx context.Context, parsed mqttinfra.ParsedTopic, msg Message) {
	dev, err := p.devices.GetByIdentifier(ctx, parsed.DeviceID)
	if err != nil {
		p.logger.Warn("dropping heartbeat from unknown device",
			"device", parsed.DeviceID,
			"error", err,
		)
		return
	}

	if err := p.devices.UpdateConnectionStatus(ctx, dev.ID, device.StatusOnline, msg.ReceivedAt); err != nil {
		p.logger.Error("failed to update device liveness",
			"device", parsed.DeviceID,
			"error", err,
		)
	}
}

// findDeployment resolves the topic's device and component token to an
// active deployment. Unknown combinations are expected during
// provisioning races and are dropped with a warning.
func (p *Pipeline) findDeployment(ctx context.Context, parsed mqttinfra.ParsedTopic) (*component.DeploymentDetail, bool) {
	identifier := component.CatalogIdentifier(parsed.Token)
	detail, err := p.components.FindActiveDetail(ctx, parsed.DeviceID, identifier)
	if err != nil {
		p.logger.Warn("dropping message for unprovisioned deployment",
			"device", parsed.DeviceID,
			"token", parsed.Token,
			"component", identifier,
			"error", err,
		)
		return nil, false
	}
	return detail, true
}

// markDeviceSeen refreshes the owning device's liveness after any
// component-level message.
func (p *Pipeline) markDeviceSeen(ctx context.Context, deviceID, deviceIdentifier string, at time.Time) {
	if err := p.devices.UpdateConnectionStatus(ctx, deviceID, device.StatusOnline, at); err != nil {
		p.logger.Error("failed to update device liveness",
			"device", deviceIdentifier,
			"error", err,
		)
	}
}
