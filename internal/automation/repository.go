package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for rule and alert persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Rule CRUD
	GetByID(ctx context.Context, id string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	ListBySensorDeployment(ctx context.Context, deploymentID string) ([]Rule, error)
	Create(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error

	// SetLastTriggeredAt stamps the cooldown marker without touching
	// any other rule field.
	SetLastTriggeredAt(ctx context.Context, id string, at time.Time) error

	// Alert logging
	CreateAlert(ctx context.Context, alert *Alert) error
	GetAlert(ctx context.Context, id string) (*Alert, error)
	ListAlerts(ctx context.Context, unacknowledgedOnly bool, limit int) ([]Alert, error)
	AcknowledgeAlert(ctx context.Context, id string) error
}

// ruleColumns is the SELECT column list for rule queries.
const ruleColumns = `id, name, description, sensor_deployment_id, operator, threshold_value,
			action_type, target_deployment_id, actuator_command, actuator_parameters,
			alert_title, alert_message, alert_severity,
			active, cooldown_minutes, last_triggered_at, created_by, created_at, updated_at`

// alertColumns is the SELECT column list for alert queries.
const alertColumns = `id, title, message, severity, rule_id, acknowledged, created_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a rule by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	rule, err := scanRuleRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("querying rule by id: %w", err)
	}
	return rule, nil
}

// List retrieves all rules ordered by creation time.
func (r *SQLiteRepository) List(ctx context.Context) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules ORDER BY created_at, id`
	return r.queryRules(ctx, query)
}

// ListBySensorDeployment retrieves all rules watching a sensor
// deployment, ordered by creation time so evaluation order is stable.
func (r *SQLiteRepository) ListBySensorDeployment(ctx context.Context, deploymentID string) ([]Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE sensor_deployment_id = ? ORDER BY created_at, id`
	return r.queryRules(ctx, query, deploymentID)
}

// Create inserts a new rule.
func (r *SQLiteRepository) Create(ctx context.Context, rule *Rule) error {
	paramsJSON, err := marshalParameters(rule.ActuatorParameters)
	if err != nil {
		return fmt.Errorf("marshalling parameters: %w", err)
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	query := `
		INSERT INTO automation_rules (
			id, name, description, sensor_deployment_id, operator, threshold_value,
			action_type, target_deployment_id, actuator_command, actuator_parameters,
			alert_title, alert_message, alert_severity,
			active, cooldown_minutes, last_triggered_at, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.Name,
		nullableString(rule.Description),
		rule.SensorDeploymentID,
		string(rule.Operator),
		rule.ThresholdValue,
		string(rule.ActionType),
		nullableString(rule.TargetDeploymentID),
		nullableString(rule.ActuatorCommand),
		paramsJSON,
		nullableString(rule.AlertTitle),
		nullableString(rule.AlertMessage),
		nullableString(rule.AlertSeverity),
		boolToInt(rule.Active),
		rule.CooldownMinutes,
		nullableTime(rule.LastTriggeredAt),
		nullableString(rule.CreatedBy),
		rule.CreatedAt.Format(time.RFC3339),
		rule.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting rule: %w", err)
	}
	return nil
}

// Update modifies an existing rule. The cooldown marker is owned by
// SetLastTriggeredAt and is not written here.
func (r *SQLiteRepository) Update(ctx context.Context, rule *Rule) error {
	paramsJSON, err := marshalParameters(rule.ActuatorParameters)
	if err != nil {
		return fmt.Errorf("marshalling parameters: %w", err)
	}

	rule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE automation_rules SET
			name = ?, description = ?, sensor_deployment_id = ?, operator = ?, threshold_value = ?,
			action_type = ?, target_deployment_id = ?, actuator_command = ?, actuator_parameters = ?,
			alert_title = ?, alert_message = ?, alert_severity = ?,
			active = ?, cooldown_minutes = ?, created_by = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name,
		nullableString(rule.Description),
		rule.SensorDeploymentID,
		string(rule.Operator),
		rule.ThresholdValue,
		string(rule.ActionType),
		nullableString(rule.TargetDeploymentID),
		nullableString(rule.ActuatorCommand),
		paramsJSON,
		nullableString(rule.AlertTitle),
		nullableString(rule.AlertMessage),
		nullableString(rule.AlertSeverity),
		boolToInt(rule.Active),
		rule.CooldownMinutes,
		nullableString(rule.CreatedBy),
		rule.UpdatedAt.Format(time.RFC3339),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("updating rule: %w", err)
	}
	return checkAffected(result, ErrRuleNotFound)
}

// Delete removes a rule by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	return checkAffected(result, ErrRuleNotFound)
}

// SetLastTriggeredAt stamps the cooldown marker for a rule.
func (r *SQLiteRepository) SetLastTriggeredAt(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE automation_rules SET last_triggered_at = ?, updated_at = ? WHERE id = ?`
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx, query, at.UTC().Format(time.RFC3339), now, id)
	if err != nil {
		return fmt.Errorf("stamping rule trigger: %w", err)
	}
	return checkAffected(result, ErrRuleNotFound)
}

// CreateAlert inserts a new alert.
func (r *SQLiteRepository) CreateAlert(ctx context.Context, alert *Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alerts (id, title, message, severity, rule_id, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.Title,
		alert.Message,
		alert.Severity,
		nullableString(alert.RuleID),
		boolToInt(alert.Acknowledged),
		alert.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// GetAlert retrieves an alert by ID.
func (r *SQLiteRepository) GetAlert(ctx context.Context, id string) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	alert, err := scanAlertRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("querying alert: %w", err)
	}
	return alert, nil
}

// ListAlerts retrieves recent alerts, newest first.
func (r *SQLiteRepository) ListAlerts(ctx context.Context, unacknowledgedOnly bool, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT ` + alertColumns + ` FROM alerts`
	if unacknowledgedOnly {
		query += ` WHERE acknowledged = 0`
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		alert, scanErr := scanAlertRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning alert: %w", scanErr)
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert as acknowledged.
func (r *SQLiteRepository) AcknowledgeAlert(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE alerts SET acknowledged = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("acknowledging alert: %w", err)
	}
	return checkAffected(result, ErrAlertNotFound)
}

// queryRules executes a query and returns a slice of rules.
func (r *SQLiteRepository) queryRules(ctx context.Context, query string, args ...any) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, scanErr := scanRuleRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning rule: %w", scanErr)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRuleRow(scanner rowScanner) (*Rule, error) {
	var r Rule
	var description, targetID, command, paramsJSON sql.NullString
	var alertTitle, alertMessage, alertSeverity sql.NullString
	var lastTriggered, createdBy sql.NullString
	var operator, actionType string
	var active int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&r.ID,
		&r.Name,
		&description,
		&r.SensorDeploymentID,
		&operator,
		&r.ThresholdValue,
		&actionType,
		&targetID,
		&command,
		&paramsJSON,
		&alertTitle,
		&alertMessage,
		&alertSeverity,
		&active,
		&r.CooldownMinutes,
		&lastTriggered,
		&createdBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Operator = Operator(operator)
	r.ActionType = ActionType(actionType)
	r.Active = active != 0

	if description.Valid {
		r.Description = &description.String
	}
	if targetID.Valid {
		r.TargetDeploymentID = &targetID.String
	}
	if command.Valid {
		r.ActuatorCommand = &command.String
	}
	if alertTitle.Valid {
		r.AlertTitle = &alertTitle.String
	}
	if alertMessage.Valid {
		r.AlertMessage = &alertMessage.String
	}
	if alertSeverity.Valid {
		r.AlertSeverity = &alertSeverity.String
	}
	if createdBy.Valid {
		r.CreatedBy = &createdBy.String
	}

	if lastTriggered.Valid {
		if t, parseErr := time.Parse(time.RFC3339, lastTriggered.String); parseErr == nil {
			r.LastTriggeredAt = &t
		}
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		r.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		r.UpdatedAt = t
	}

	if paramsJSON.Valid && paramsJSON.String != "" && paramsJSON.String != "null" {
		if jsonErr := json.Unmarshal([]byte(paramsJSON.String), &r.ActuatorParameters); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling parameters: %w", jsonErr)
		}
	}

	return &r, nil
}

func scanAlertRow(scanner rowScanner) (*Alert, error) {
	var a Alert
	var ruleID sql.NullString
	var acknowledged int
	var createdAt string

	err := scanner.Scan(
		&a.ID,
		&a.Title,
		&a.Message,
		&a.Severity,
		&ruleID,
		&acknowledged,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	a.Acknowledged = acknowledged != 0
	if ruleID.Valid {
		a.RuleID = &ruleID.String
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		a.CreatedAt = t
	}

	return &a, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func marshalParameters(params map[string]any) (sql.NullString, error) {
	if len(params) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func checkAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
