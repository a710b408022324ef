package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/farmhub/farmhub-core/internal/component"
	mqttinfra "github.com/farmhub/farmhub-core/internal/infrastructure/mqtt"
)

// Servo commands are angles in degrees.
const (
	servoMinAngle = 0
	servoMaxAngle = 180
)

// Broker is the interface for publishing to the MQTT broker.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// DeploymentFinder resolves a device identifier and catalog identifier
// pair to its deployment and records outbound interactions. Satisfied
// by the component repository.
type DeploymentFinder interface {
	FindActiveDetail(ctx context.Context, deviceIdentifier, componentIdentifier string) (*component.DeploymentDetail, error)

	// MarkInteraction stamps the interaction time without changing
	// connection status.
	MarkInteraction(ctx context.Context, id string, at time.Time) error
}

// Logger defines the logging interface used by the Publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Publisher validates, publishes, and logs actuator commands.
//
// Commands go out at QoS 1 retained so the broker redelivers the last
// commanded state to a device that reconnects. Every publish attempt,
// successful or not, is appended to the command log with its delivered
// flag; a command rejected by parameter validation never reaches the
// wire and is not logged.
type Publisher struct {
	broker Broker
	finder DeploymentFinder
	repo   Repository
	topics mqttinfra.Topics
	logger Logger
}

// NewPublisher creates a new command publisher.
func NewPublisher(broker Broker, finder DeploymentFinder, repo Repository, topics mqttinfra.Topics) *Publisher {
	return &Publisher{
		broker: broker,
		finder: finder,
		repo:   repo,
		topics: topics,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// SendCommand publishes a command to an actuator, identified by the
// device identifier and the wire token the device listens on. This is
// the entry point the rule engine uses.
func (p *Publisher) SendCommand(ctx context.Context, deviceIdentifier, componentToken, cmd string, parameters map[string]any, source string) error {
	return p.Send(ctx, deviceIdentifier, componentToken, cmd, parameters, source, nil)
}

// Send publishes a command with full log attribution.
//
// Returns ErrInvalidParameter if the command fails validation for the
// component (nothing is published or logged), ErrNotActuator if the
// deployment is not an actuator, or the publish error after logging
// the failed delivery.
func (p *Publisher) Send(ctx context.Context, deviceIdentifier, componentToken, cmd string, parameters map[string]any, source string, issuedBy *string) error {
	identifier := component.CatalogIdentifier(componentToken)

	detail, err := p.finder.FindActiveDetail(ctx, deviceIdentifier, identifier)
	if err != nil {
		return fmt.Errorf("resolving %s/%s: %w", deviceIdentifier, componentToken, err)
	}
	if detail.Category != component.CategoryActuator {
		return fmt.Errorf("%w: %s/%s", ErrNotActuator, deviceIdentifier, componentToken)
	}

	if err := validateCommand(componentToken, cmd); err != nil {
		return err
	}

	topic := p.topics.ActuatorCommand(deviceIdentifier, componentToken)
	pubErr := p.broker.Publish(topic, []byte(cmd), 1, true)

	rec := &Record{
		ID:           GenerateID(),
		DeploymentID: detail.ID,
		Command:      cmd,
		Parameters:   parameters,
		Source:       source,
		IssuedBy:     issuedBy,
		Delivered:    pubErr == nil,
		RecordedAt:   time.Now().UTC(),
	}
	if logErr := p.repo.Append(ctx, rec); logErr != nil {
		p.logger.Error("failed to log command",
			"deployment_id", detail.ID,
			"command", cmd,
			"error", logErr,
		)
	}

	if pubErr != nil {
		p.logger.Error("command delivery failed",
			"topic", topic,
			"command", cmd,
			"source", source,
			"error", pubErr,
		)
		return fmt.Errorf("publishing command: %w", pubErr)
	}

	if err := p.finder.MarkInteraction(ctx, detail.ID, rec.RecordedAt); err != nil {
		p.logger.Error("failed to stamp deployment interaction",
			"deployment_id", detail.ID,
			"error", err,
		)
	}

	p.logger.Info("command published",
		"topic", topic,
		"command", cmd,
		"source", source,
	)
	return nil
}

// validateCommand enforces per-component command constraints.
// Servo commands must be a whole angle between 0 and 180 degrees.
func validateCommand(componentToken, cmd string) error {
	if !component.IsServoToken(componentToken) {
		return nil
	}

	angle, err := strconv.Atoi(cmd)
	if err != nil {
		return fmt.Errorf("%w: servo command %q is not a whole number", ErrInvalidParameter, cmd)
	}
	if angle < servoMinAngle || angle > servoMaxAngle {
		return fmt.Errorf("%w: servo angle %d out of range %d-%d", ErrInvalidParameter, angle, servoMinAngle, servoMaxAngle)
	}
	return nil
}
