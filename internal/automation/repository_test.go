package automation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the automation
// tables. Deployment foreign keys are declared but not enforced here;
// the component package owns those tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	schema := `
		CREATE TABLE automation_rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			sensor_deployment_id TEXT NOT NULL,
			operator TEXT NOT NULL CHECK (operator IN ('gt', 'lt', 'gte', 'lte', 'eq', 'neq')),
			threshold_value REAL NOT NULL,
			action_type TEXT NOT NULL CHECK (action_type IN ('trigger_actuator', 'create_alert')),
			target_deployment_id TEXT,
			actuator_command TEXT,
			actuator_parameters TEXT,
			alert_title TEXT,
			alert_message TEXT,
			alert_severity TEXT,
			active INTEGER NOT NULL DEFAULT 1,
			cooldown_minutes INTEGER NOT NULL DEFAULT 5,
			last_triggered_at TEXT,
			created_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE alerts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL DEFAULT 'warning',
			rule_id TEXT,
			acknowledged INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestRepository_RuleCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	rule := validRule()
	params := map[string]any{"speed": "high"}
	rule.ActuatorParameters = params

	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != rule.Name {
		t.Errorf("Name = %q, want %q", got.Name, rule.Name)
	}
	if got.Operator != OpGreaterThan {
		t.Errorf("Operator = %q, want gt", got.Operator)
	}
	if got.ActionType != ActionTriggerActuator {
		t.Errorf("ActionType = %q", got.ActionType)
	}
	if got.TargetDeploymentID == nil || *got.TargetDeploymentID != "dep-actuator" {
		t.Errorf("TargetDeploymentID = %v", got.TargetDeploymentID)
	}
	if got.ActuatorParameters["speed"] != "high" {
		t.Errorf("ActuatorParameters = %v", got.ActuatorParameters)
	}
	if got.LastTriggeredAt != nil {
		t.Errorf("LastTriggeredAt = %v, want nil", got.LastTriggeredAt)
	}
	if !got.Active {
		t.Error("Active = false, want true")
	}

	got.ThresholdValue = 35
	got.Operator = OpGreaterEqual
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, err := repo.GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.ThresholdValue != 35 || updated.Operator != OpGreaterEqual {
		t.Errorf("after update: threshold=%g operator=%q", updated.ThresholdValue, updated.Operator)
	}

	if err := repo.Delete(ctx, rule.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, rule.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrRuleNotFound", err)
	}
	if err := repo.Delete(ctx, rule.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrRuleNotFound", err)
	}
}

func TestRepository_ListBySensorDeployment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	first := validRule()
	first.SensorDeploymentID = "dep-temp"
	first.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)

	second := validRule()
	second.SensorDeploymentID = "dep-temp"
	second.CreatedAt = time.Now().UTC().Add(-time.Hour)

	other := validRule()
	other.SensorDeploymentID = "dep-humidity"

	for _, r := range []*Rule{second, other, first} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	rules, err := repo.ListBySensorDeployment(ctx, "dep-temp")
	if err != nil {
		t.Fatalf("ListBySensorDeployment() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	// Creation order is the evaluation order.
	if rules[0].ID != first.ID || rules[1].ID != second.ID {
		t.Errorf("order = [%s, %s], want [%s, %s]", rules[0].ID, rules[1].ID, first.ID, second.ID)
	}
}

func TestRepository_SetLastTriggeredAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	rule := validRule()
	if err := repo.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	if err := repo.SetLastTriggeredAt(ctx, rule.ID, at); err != nil {
		t.Fatalf("SetLastTriggeredAt() error = %v", err)
	}

	got, err := repo.GetByID(ctx, rule.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.LastTriggeredAt == nil || !got.LastTriggeredAt.Equal(at) {
		t.Errorf("LastTriggeredAt = %v, want %v", got.LastTriggeredAt, at)
	}

	if err := repo.SetLastTriggeredAt(ctx, "nonexistent", at); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("SetLastTriggeredAt() unknown id error = %v, want ErrRuleNotFound", err)
	}
}

func TestRepository_Alerts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	ruleID := "rule-1"
	first := &Alert{
		ID:        GenerateID(),
		Title:     "Automation Alert",
		Message:   "water level below threshold",
		Severity:  "warning",
		RuleID:    &ruleID,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	second := &Alert{
		ID:       GenerateID(),
		Title:    "High temperature",
		Message:  "greenhouse over 40C",
		Severity: "critical",
	}

	for _, a := range []*Alert{first, second} {
		if err := repo.CreateAlert(ctx, a); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
	}

	alerts, err := repo.ListAlerts(ctx, false, 10)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	// Newest first.
	if alerts[0].ID != second.ID {
		t.Errorf("alerts[0].ID = %s, want %s", alerts[0].ID, second.ID)
	}
	if alerts[1].RuleID == nil || *alerts[1].RuleID != ruleID {
		t.Errorf("alerts[1].RuleID = %v, want %s", alerts[1].RuleID, ruleID)
	}

	if err := repo.AcknowledgeAlert(ctx, first.ID); err != nil {
		t.Fatalf("AcknowledgeAlert() error = %v", err)
	}

	open, err := repo.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts(unacknowledged) error = %v", err)
	}
	if len(open) != 1 || open[0].ID != second.ID {
		t.Errorf("unacknowledged = %+v, want only %s", open, second.ID)
	}

	got, err := repo.GetAlert(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if !got.Acknowledged {
		t.Error("Acknowledged = false after AcknowledgeAlert")
	}

	if _, err := repo.GetAlert(ctx, "nonexistent"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("GetAlert() unknown id error = %v, want ErrAlertNotFound", err)
	}
	if err := repo.AcknowledgeAlert(ctx, "nonexistent"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("AcknowledgeAlert() unknown id error = %v, want ErrAlertNotFound", err)
	}
}
