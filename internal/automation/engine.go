package automation

import (
	"context"
	"fmt"
	"time"
)

// Deployment categories as the resolver reports them. Mirrors the
// component catalog without importing it.
const (
	CategorySensor   = "sensor"
	CategoryActuator = "actuator"
)

// DeploymentInfo holds the minimal deployment information the engine
// needs for routing a command to the wire.
type DeploymentInfo struct {
	ID                  string
	DeviceIdentifier    string
	ComponentIdentifier string
	WireToken           string
	Category            string
}

// DeploymentResolver is the interface the engine needs from the
// component package. It resolves a deployment ID to routing info.
type DeploymentResolver interface {
	Resolve(ctx context.Context, deploymentID string) (DeploymentInfo, error)
}

// ResolverFunc adapts a function to the DeploymentResolver interface.
type ResolverFunc func(ctx context.Context, deploymentID string) (DeploymentInfo, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, deploymentID string) (DeploymentInfo, error) {
	return f(ctx, deploymentID)
}

// CommandSender publishes actuator commands. Implemented by the
// command publisher; kept as an interface so engine tests can observe
// outgoing commands without a broker.
type CommandSender interface {
	SendCommand(ctx context.Context, deviceIdentifier, componentToken, command string, parameters map[string]any, source string) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// commandSource tags actuator commands issued by rules in the command log.
const commandSource = "automation"

// Engine evaluates automation rules against incoming sensor readings.
//
// For each reading it loads the active rules watching that deployment,
// checks the threshold condition and the cooldown window, and executes
// the matching rules' actions. Rules are independent: one rule failing
// never stops the others from firing.
//
// Thread Safety: Evaluate is safe for concurrent use, though the
// ingest pipeline calls it from a single worker. Cooldown reads and
// writes are not atomic across concurrent callers for the same rule.
type Engine struct {
	registry *Registry
	resolver DeploymentResolver
	sender   CommandSender
	repo     Repository // For alert persistence
	hub      WSHub
	logger   Logger
}

// NewEngine creates a new rule engine.
//
// Parameters:
//   - registry: Rule registry for the active-rule lookups
//   - resolver: Deployment resolver for actuator routing
//   - sender: Command sender for trigger_actuator rules (may be nil)
//   - repo: Repository for persisting alerts
//   - hub: WebSocket hub for broadcasting events (may be nil)
//   - logger: Logger instance
func NewEngine(registry *Registry, resolver DeploymentResolver, sender CommandSender, repo Repository, hub WSHub, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		registry: registry,
		resolver: resolver,
		sender:   sender,
		repo:     repo,
		hub:      hub,
		logger:   logger,
	}
}

// Evaluate runs every active rule watching the sensor deployment
// against the reading value. Returns the number of rules that fired.
//
// A rule fires when its condition matches and it is outside its
// cooldown window. The cooldown marker is stamped whenever a rule
// fires, even if the action itself fails, so a broken actuator cannot
// turn a rule into a rapid-fire loop.
func (e *Engine) Evaluate(ctx context.Context, sensorDeploymentID string, value float64, at time.Time) int {
	rules := e.registry.ActiveRulesForSensor(ctx, sensorDeploymentID)
	if len(rules) == 0 {
		return 0
	}

	fired := 0
	for i := range rules {
		rule := &rules[i]

		if !rule.Operator.Compare(value, rule.ThresholdValue) {
			continue
		}
		if rule.InCooldown(at) {
			e.logger.Debug("rule in cooldown",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"last_triggered_at", rule.LastTriggeredAt,
			)
			continue
		}

		fired++
		actionErr := e.executeAction(ctx, rule, value)
		if actionErr != nil {
			e.logger.Error("rule action failed",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"action", rule.ActionType,
				"error", actionErr,
			)
		}

		// Stamp regardless of the action outcome.
		if err := e.registry.markTriggered(ctx, rule.ID, at); err != nil {
			e.logger.Error("failed to stamp rule trigger", "rule_id", rule.ID, "error", err)
		}

		e.logger.Info("rule fired",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"action", rule.ActionType,
			"value", value,
			"threshold", rule.ThresholdValue,
			"operator", rule.Operator,
		)

		if e.hub != nil {
			e.hub.Broadcast("rule.triggered", map[string]any{
				"rule_id":   rule.ID,
				"rule_name": rule.Name,
				"action":    string(rule.ActionType),
				"value":     value,
				"succeeded": actionErr == nil,
			})
		}
	}
	return fired
}

// executeAction dispatches on the rule's action type.
func (e *Engine) executeAction(ctx context.Context, rule *Rule, value float64) error {
	switch rule.ActionType {
	case ActionTriggerActuator:
		return e.triggerActuator(ctx, rule)
	case ActionCreateAlert:
		return e.createAlert(ctx, rule, value)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, rule.ActionType)
	}
}

// triggerActuator resolves the target deployment and publishes the
// rule's command to it.
func (e *Engine) triggerActuator(ctx context.Context, rule *Rule) error {
	if e.sender == nil {
		return fmt.Errorf("no command sender configured")
	}
	if rule.TargetDeploymentID == nil {
		return ErrTargetRequired
	}

	target, err := e.resolver.Resolve(ctx, *rule.TargetDeploymentID)
	if err != nil {
		return fmt.Errorf("resolving target %q: %w", *rule.TargetDeploymentID, err)
	}
	if target.Category != CategoryActuator {
		return fmt.Errorf("%w: deployment %q is not an actuator", ErrTargetRequired, target.ID)
	}

	return e.sender.SendCommand(ctx,
		target.DeviceIdentifier,
		target.WireToken,
		rule.Command(),
		rule.ActuatorParameters,
		commandSource,
	)
}

// createAlert persists an alert built from the rule's alert fields,
// applying defaults where they are unset.
func (e *Engine) createAlert(ctx context.Context, rule *Rule, value float64) error {
	title := DefaultAlertTitle
	if rule.AlertTitle != nil && *rule.AlertTitle != "" {
		title = *rule.AlertTitle
	}
	severity := DefaultAlertSeverity
	if rule.AlertSeverity != nil && *rule.AlertSeverity != "" {
		severity = *rule.AlertSeverity
	}
	message := fmt.Sprintf("%s: value %g %s threshold %g", rule.Name, value, rule.Operator, rule.ThresholdValue)
	if rule.AlertMessage != nil && *rule.AlertMessage != "" {
		message = *rule.AlertMessage
	}

	ruleID := rule.ID
	alert := &Alert{
		ID:       GenerateID(),
		Title:    title,
		Message:  message,
		Severity: severity,
		RuleID:   &ruleID,
	}

	if err := e.repo.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("persisting alert: %w", err)
	}

	if e.hub != nil {
		e.hub.Broadcast("alert.created", map[string]any{
			"alert_id": alert.ID,
			"title":    alert.Title,
			"severity": alert.Severity,
			"rule_id":  rule.ID,
		})
	}
	return nil
}

// RaiseAlert records an alert not tied to any rule, for pipeline
// conditions like messages from unprovisioned devices.
func (e *Engine) RaiseAlert(ctx context.Context, title, message, severity string) error {
	if title == "" {
		title = DefaultAlertTitle
	}
	if severity == "" {
		severity = DefaultAlertSeverity
	}

	alert := &Alert{
		ID:       GenerateID(),
		Title:    title,
		Message:  message,
		Severity: severity,
	}
	if err := e.repo.CreateAlert(ctx, alert); err != nil {
		return fmt.Errorf("persisting alert: %w", err)
	}

	if e.hub != nil {
		e.hub.Broadcast("alert.created", map[string]any{
			"alert_id": alert.ID,
			"title":    alert.Title,
			"severity": alert.Severity,
		})
	}
	return nil
}
