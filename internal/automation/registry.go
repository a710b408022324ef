package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry and Engine.
// This allows different logging implementations to be used.
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

// Registry provides rule management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache so the hot path
// (one lookup per sensor reading) never touches the database.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo     Repository
	resolver DeploymentResolver
	cache    map[string]*Rule // Cached rules by ID
	cacheMu  sync.RWMutex     // Protects cache
	logger   Logger
}

// NewRegistry creates a new rule registry.
// The repository is used for persistence; the resolver verifies rules
// point at deployments of the right category.
func NewRegistry(repo Repository, resolver DeploymentResolver) *Registry {
	return &Registry{
		repo:     repo,
		resolver: resolver,
		cache:    make(map[string]*Rule),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all rules from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	rules, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Rule, len(rules))
	for i := range rules {
		rule := rules[i]
		r.cache[rule.ID] = rule.DeepCopy()
	}

	r.logger.Info("rule cache refreshed", "count", len(rules))
	return nil
}

// GetRule retrieves a rule by ID.
// The returned rule is a deep copy; callers can safely modify it.
func (r *Registry) GetRule(_ context.Context, id string) (*Rule, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrRuleNotFound
}

// ListRules retrieves all rules from the cache.
// Returns deep copies sorted by creation time for deterministic ordering.
func (r *Registry) ListRules(_ context.Context) ([]Rule, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	rules := make([]Rule, 0, len(r.cache))
	for _, rule := range r.cache {
		rules = append(rules, *rule.DeepCopy())
	}
	sortRules(rules)
	return rules, nil
}

// ActiveRulesForSensor retrieves the active rules watching a sensor
// deployment, in creation order. This is the evaluation hot path.
func (r *Registry) ActiveRulesForSensor(_ context.Context, deploymentID string) []Rule {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var rules []Rule
	for _, rule := range r.cache {
		if rule.Active && rule.SensorDeploymentID == deploymentID {
			rules = append(rules, *rule.DeepCopy())
		}
	}
	sortRules(rules)
	return rules
}

// sortRules sorts rules by created_at then ID, matching the DB query ordering.
func sortRules(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
}

// CreateRule validates, persists, and caches a new rule.
//
// Beyond structural validation this checks the deployment categories:
// the watched deployment must be a sensor and, for trigger_actuator
// rules, the target must be an actuator.
func (r *Registry) CreateRule(ctx context.Context, rule *Rule) error {
	if rule != nil {
		if rule.ID == "" {
			rule.ID = GenerateID()
		}
		if rule.CooldownMinutes == 0 {
			rule.CooldownMinutes = DefaultCooldownMinutes
		}
	}

	if err := ValidateRule(rule); err != nil {
		return err
	}
	if err := r.checkCategories(ctx, rule); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, rule); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rule.ID] = rule.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("rule created", "id", rule.ID, "name", rule.Name, "action", rule.ActionType)
	return nil
}

// UpdateRule validates, persists, and updates the cached rule.
func (r *Registry) UpdateRule(ctx context.Context, rule *Rule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}
	if err := r.checkCategories(ctx, rule); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, rule); err != nil {
		return err
	}

	// Preserve the cooldown marker the persistence layer owns.
	r.cacheMu.Lock()
	if prev, ok := r.cache[rule.ID]; ok && rule.LastTriggeredAt == nil {
		rule.LastTriggeredAt = prev.LastTriggeredAt
	}
	r.cache[rule.ID] = rule.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("rule updated", "id", rule.ID, "name", rule.Name)
	return nil
}

// SetActive toggles a rule without touching its other fields.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) error {
	rule, err := r.GetRule(ctx, id)
	if err != nil {
		return err
	}
	rule.Active = active

	if err := r.repo.Update(ctx, rule); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[rule.ID] = rule.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("rule toggled", "id", id, "active", active)
	return nil
}

// DeleteRule removes a rule from persistence and cache.
func (r *Registry) DeleteRule(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("rule deleted", "id", id)
	return nil
}

// markTriggered stamps the cooldown marker in both store and cache.
// Called by the engine after a rule fires; the persistence write and
// the cache write stay together so a restart sees the same cooldown.
func (r *Registry) markTriggered(ctx context.Context, id string, at time.Time) error {
	if err := r.repo.SetLastTriggeredAt(ctx, id, at); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		t := at
		cached.LastTriggeredAt = &t
	}
	r.cacheMu.Unlock()
	return nil
}

// GetRuleCount returns the number of cached rules.
func (r *Registry) GetRuleCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// checkCategories verifies rule deployments against the catalog.
func (r *Registry) checkCategories(ctx context.Context, rule *Rule) error {
	if r.resolver == nil {
		return nil
	}

	sensor, err := r.resolver.Resolve(ctx, rule.SensorDeploymentID)
	if err != nil {
		return fmt.Errorf("%w: sensor deployment %q: %v", ErrSensorRequired, rule.SensorDeploymentID, err)
	}
	if sensor.Category != CategorySensor {
		return fmt.Errorf("%w: deployment %q is not a sensor", ErrSensorRequired, rule.SensorDeploymentID)
	}

	if rule.ActionType == ActionTriggerActuator {
		target, err := r.resolver.Resolve(ctx, *rule.TargetDeploymentID)
		if err != nil {
			return fmt.Errorf("%w: target deployment %q: %v", ErrTargetRequired, *rule.TargetDeploymentID, err)
		}
		if target.Category != CategoryActuator {
			return fmt.Errorf("%w: deployment %q is not an actuator", ErrTargetRequired, *rule.TargetDeploymentID)
		}
	}
	return nil
}
