package component

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Column lists shared by the SELECT statements below.
const (
	typeColumns = `id, name, identifier, category, unit, description,
	created_at, updated_at`

	deploymentColumns = `d.id, d.device_id, d.component_type_id, d.location,
	d.active, d.connection_status, d.last_value, d.last_value_at,
	d.last_interaction_at, d.created_at, d.updated_at`

	detailColumns = deploymentColumns + `,
	dev.identifier, ct.identifier, ct.name, ct.category, ct.unit`

	detailJoins = `
		FROM component_deployments d
		JOIN devices dev ON dev.id = d.device_id
		JOIN component_types ct ON ct.id = d.component_type_id`
)

// Repository defines persistence for the component catalog and
// deployments. The telemetry processors, rule engine and liveness
// monitor all go through this interface.
type Repository interface {
	// CreateType inserts a catalog entry.
	// Returns ErrTypeExists if the identifier is already taken.
	CreateType(ctx context.Context, ct *ComponentType) error

	// GetType retrieves a catalog entry by ID.
	GetType(ctx context.Context, id string) (*ComponentType, error)

	// GetTypeByIdentifier retrieves a catalog entry by its unique identifier.
	GetTypeByIdentifier(ctx context.Context, identifier string) (*ComponentType, error)

	// ListTypes retrieves the whole catalog.
	ListTypes(ctx context.Context) ([]ComponentType, error)

	// UpdateType modifies a catalog entry.
	UpdateType(ctx context.Context, ct *ComponentType) error

	// DeleteType removes a catalog entry.
	DeleteType(ctx context.Context, id string) error

	// CreateDeployment binds a component type to a device.
	// Returns ErrDeploymentExists if the device already carries one.
	CreateDeployment(ctx context.Context, d *Deployment) error

	// GetDeployment retrieves a deployment by ID.
	GetDeployment(ctx context.Context, id string) (*Deployment, error)

	// GetDetail retrieves a deployment joined with its device and
	// catalog fields.
	GetDetail(ctx context.Context, id string) (*DeploymentDetail, error)

	// FindActiveDetail locates the active deployment for an inbound
	// message by the device's MQTT identifier and the mapped catalog
	// identifier. Returns ErrDeploymentNotFound when the combination is
	// not provisioned.
	FindActiveDetail(ctx context.Context, deviceIdentifier, componentIdentifier string) (*DeploymentDetail, error)

	// ListDeployments retrieves all deployments, optionally filtered by
	// device ID (empty string means all).
	ListDeployments(ctx context.Context, deviceID string) ([]DeploymentDetail, error)

	// UpdateDeployment modifies a deployment's administrative fields
	// (location, active flag, connection status).
	UpdateDeployment(ctx context.Context, d *Deployment) error

	// DeleteDeployment removes a deployment.
	DeleteDeployment(ctx context.Context, id string) error

	// RecordValue stores a new observed value on a deployment, stamps
	// the interaction time and brings it online. The reading itself is
	// appended separately by the telemetry repository.
	RecordValue(ctx context.Context, id string, value float64, at time.Time) error

	// Touch stamps a deployment's interaction time and brings it
	// online, without changing the stored value.
	Touch(ctx context.Context, id string, at time.Time) error

	// MarkInteraction stamps only the interaction time. Unlike Touch it
	// never changes connection status; outbound commands use it, since
	// only a message from the device can establish liveness.
	MarkInteraction(ctx context.Context, id string, at time.Time) error

	// MarkStaleOffline transitions active online deployments whose last
	// interaction is older than the cutoff to offline, returning the
	// IDs it transitioned. Sweeps are idempotent.
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error)

	// CountByStatus returns active deployment counts per connection
	// status for one category.
	CountByStatus(ctx context.Context, category Category) (StatusCounts, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// =============================================================================
// Catalog
// =============================================================================

// CreateType inserts a catalog entry.
func (r *SQLiteRepository) CreateType(ctx context.Context, ct *ComponentType) error {
	now := time.Now().UTC()
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = now
	}
	ct.UpdatedAt = now

	query := `
		INSERT INTO component_types (
			id, name, identifier, category, unit, description, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		ct.ID,
		ct.Name,
		ct.Identifier,
		string(ct.Category),
		nullableString(ct.Unit),
		nullableString(ct.Description),
		ct.CreatedAt.Format(time.RFC3339),
		ct.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrTypeExists
		}
		return fmt.Errorf("inserting component type: %w", err)
	}

	return nil
}

// GetType retrieves a catalog entry by ID.
func (r *SQLiteRepository) GetType(ctx context.Context, id string) (*ComponentType, error) {
	query := `SELECT ` + typeColumns + ` FROM component_types WHERE id = ?`

	ct, err := scanTypeRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, fmt.Errorf("querying component type: %w", err)
	}
	return ct, nil
}

// GetTypeByIdentifier retrieves a catalog entry by identifier.
func (r *SQLiteRepository) GetTypeByIdentifier(ctx context.Context, identifier string) (*ComponentType, error) {
	query := `SELECT ` + typeColumns + ` FROM component_types WHERE identifier = ?`

	ct, err := scanTypeRow(r.db.QueryRowContext(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTypeNotFound
		}
		return nil, fmt.Errorf("querying component type by identifier: %w", err)
	}
	return ct, nil
}

// ListTypes retrieves the whole catalog ordered by name.
func (r *SQLiteRepository) ListTypes(ctx context.Context) ([]ComponentType, error) {
	query := `SELECT ` + typeColumns + ` FROM component_types ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying component types: %w", err)
	}
	defer rows.Close()

	var types []ComponentType
	for rows.Next() {
		ct, err := scanTypeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning component type: %w", err)
		}
		types = append(types, *ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating component types: %w", err)
	}

	return types, nil
}

// UpdateType modifies a catalog entry.
func (r *SQLiteRepository) UpdateType(ctx context.Context, ct *ComponentType) error {
	ct.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE component_types
		SET name = ?, identifier = ?, category = ?, unit = ?, description = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		ct.Name,
		ct.Identifier,
		string(ct.Category),
		nullableString(ct.Unit),
		nullableString(ct.Description),
		ct.UpdatedAt.Format(time.RFC3339),
		ct.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrTypeExists
		}
		return fmt.Errorf("updating component type: %w", err)
	}

	return checkAffected(result, ErrTypeNotFound)
}

// DeleteType removes a catalog entry.
func (r *SQLiteRepository) DeleteType(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM component_types WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting component type: %w", err)
	}
	return checkAffected(result, ErrTypeNotFound)
}

// =============================================================================
// Deployments
// =============================================================================

// CreateDeployment binds a component type to a device.
func (r *SQLiteRepository) CreateDeployment(ctx context.Context, d *Deployment) error {
	if d.ConnectionStatus == "" {
		d.ConnectionStatus = StatusUnknown
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO component_deployments (
			id, device_id, component_type_id, location, active,
			connection_status, last_value, last_value_at, last_interaction_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.DeviceID,
		d.ComponentTypeID,
		nullableString(d.Location),
		boolToInt(d.Active),
		string(d.ConnectionStatus),
		nullableFloat(d.LastValue),
		nullableTime(d.LastValueAt),
		nullableTime(d.LastInteractionAt),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeploymentExists
		}
		return fmt.Errorf("inserting deployment: %w", err)
	}

	return nil
}

// GetDeployment retrieves a deployment by ID.
func (r *SQLiteRepository) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM component_deployments d WHERE d.id = ?`

	d, err := scanDeploymentRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("querying deployment: %w", err)
	}
	return d, nil
}

// GetDetail retrieves a deployment joined with device and catalog fields.
func (r *SQLiteRepository) GetDetail(ctx context.Context, id string) (*DeploymentDetail, error) {
	query := `SELECT ` + detailColumns + detailJoins + ` WHERE d.id = ?`

	detail, err := scanDetailRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("querying deployment detail: %w", err)
	}
	return detail, nil
}

// FindActiveDetail locates the active deployment for an inbound message.
func (r *SQLiteRepository) FindActiveDetail(ctx context.Context, deviceIdentifier, componentIdentifier string) (*DeploymentDetail, error) {
	query := `SELECT ` + detailColumns + detailJoins + `
		WHERE dev.identifier = ? AND ct.identifier = ? AND d.active = 1`

	detail, err := scanDetailRow(r.db.QueryRowContext(ctx, query, deviceIdentifier, componentIdentifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("querying deployment by identifiers: %w", err)
	}
	return detail, nil
}

// ListDeployments retrieves deployments, optionally filtered by device ID.
func (r *SQLiteRepository) ListDeployments(ctx context.Context, deviceID string) ([]DeploymentDetail, error) {
	query := `SELECT ` + detailColumns + detailJoins
	var args []any
	if deviceID != "" {
		query += ` WHERE d.device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY ct.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying deployments: %w", err)
	}
	defer rows.Close()

	var details []DeploymentDetail
	for rows.Next() {
		detail, err := scanDetailRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning deployment: %w", err)
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deployments: %w", err)
	}

	return details, nil
}

// UpdateDeployment modifies a deployment's administrative fields.
func (r *SQLiteRepository) UpdateDeployment(ctx context.Context, d *Deployment) error {
	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE component_deployments
		SET location = ?, active = ?, connection_status = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableString(d.Location),
		boolToInt(d.Active),
		string(d.ConnectionStatus),
		d.UpdatedAt.Format(time.RFC3339),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating deployment: %w", err)
	}

	return checkAffected(result, ErrDeploymentNotFound)
}

// DeleteDeployment removes a deployment.
func (r *SQLiteRepository) DeleteDeployment(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM component_deployments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting deployment: %w", err)
	}
	return checkAffected(result, ErrDeploymentNotFound)
}

// RecordValue stores a new observed value and brings the deployment online.
// The status write and value write are one UPDATE, so a deployment can
// never hold a fresh reading while still marked offline.
func (r *SQLiteRepository) RecordValue(ctx context.Context, id string, value float64, at time.Time) error {
	now := time.Now().UTC()
	ts := at.UTC().Format(time.RFC3339)

	query := `
		UPDATE component_deployments
		SET last_value = ?, last_value_at = ?, last_interaction_at = ?,
		    connection_status = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		value,
		ts,
		ts,
		string(StatusOnline),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("recording deployment value: %w", err)
	}

	return checkAffected(result, ErrDeploymentNotFound)
}

// Touch stamps a deployment's interaction time and brings it online.
func (r *SQLiteRepository) Touch(ctx context.Context, id string, at time.Time) error {
	now := time.Now().UTC()

	query := `
		UPDATE component_deployments
		SET last_interaction_at = ?, connection_status = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		at.UTC().Format(time.RFC3339),
		string(StatusOnline),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("touching deployment: %w", err)
	}

	return checkAffected(result, ErrDeploymentNotFound)
}

// MarkInteraction stamps only the interaction time.
func (r *SQLiteRepository) MarkInteraction(ctx context.Context, id string, at time.Time) error {
	now := time.Now().UTC()

	query := `
		UPDATE component_deployments
		SET last_interaction_at = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		at.UTC().Format(time.RFC3339),
		now.Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("marking deployment interaction: %w", err)
	}

	return checkAffected(result, ErrDeploymentNotFound)
}

// MarkStaleOffline transitions stale online deployments to offline.
func (r *SQLiteRepository) MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error) {
	selectQuery := `
		SELECT id FROM component_deployments
		WHERE active = 1
		  AND connection_status = ?
		  AND (last_interaction_at IS NULL OR last_interaction_at < ?)`

	rows, err := r.db.QueryContext(ctx, selectQuery,
		string(StatusOnline),
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("selecting stale deployments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stale deployment id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stale deployments: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+2)
	args = append(args, string(StatusOffline), now)
	for _, id := range ids {
		args = append(args, id)
	}

	//nolint:gosec // placeholders contains only "?" characters
	updateQuery := fmt.Sprintf(
		"UPDATE component_deployments SET connection_status = ?, updated_at = ? WHERE id IN (%s)",
		placeholders,
	)
	if _, err := r.db.ExecContext(ctx, updateQuery, args...); err != nil {
		return nil, fmt.Errorf("marking deployments offline: %w", err)
	}

	return ids, nil
}

// CountByStatus returns active deployment counts per status for one category.
func (r *SQLiteRepository) CountByStatus(ctx context.Context, category Category) (StatusCounts, error) {
	query := `
		SELECT d.connection_status, COUNT(*)
		FROM component_deployments d
		JOIN component_types ct ON ct.id = d.component_type_id
		WHERE d.active = 1 AND ct.category = ?
		GROUP BY d.connection_status`

	rows, err := r.db.QueryContext(ctx, query, string(category))
	if err != nil {
		return StatusCounts{}, fmt.Errorf("counting deployments: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, fmt.Errorf("scanning deployment counts: %w", err)
		}
		switch ConnectionStatus(status) {
		case StatusOnline:
			counts.Online = count
		case StatusOffline:
			counts.Offline = count
		case StatusError:
			counts.Error = count
		default:
			counts.Unknown += count
		}
	}
	if err := rows.Err(); err != nil {
		return StatusCounts{}, fmt.Errorf("iterating deployment counts: %w", err)
	}

	return counts, nil
}

// =============================================================================
// Scanning helpers
// =============================================================================

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTypeRow(scanner rowScanner) (*ComponentType, error) {
	var ct ComponentType
	var unit, description sql.NullString
	var category, createdAt, updatedAt string

	err := scanner.Scan(
		&ct.ID,
		&ct.Name,
		&ct.Identifier,
		&category,
		&unit,
		&description,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ct.Category = Category(category)
	if unit.Valid {
		ct.Unit = &unit.String
	}
	if description.Valid {
		ct.Description = &description.String
	}

	if ct.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if ct.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &ct, nil
}

// scanDeploymentFields scans the deployment columns shared by the plain
// and detail queries. Extra destinations follow for the detail joins.
func scanDeploymentFields(scanner rowScanner, d *Deployment, extra ...any) error {
	var location sql.NullString
	var lastValue sql.NullFloat64
	var lastValueAt, lastInteractionAt sql.NullString
	var status, createdAt, updatedAt string
	var active int

	dest := []any{
		&d.ID,
		&d.DeviceID,
		&d.ComponentTypeID,
		&location,
		&active,
		&status,
		&lastValue,
		&lastValueAt,
		&lastInteractionAt,
		&createdAt,
		&updatedAt,
	}
	dest = append(dest, extra...)

	if err := scanner.Scan(dest...); err != nil {
		return err
	}

	d.Active = active != 0
	d.ConnectionStatus = ConnectionStatus(status)

	if location.Valid {
		d.Location = &location.String
	}
	if lastValue.Valid {
		d.LastValue = &lastValue.Float64
	}

	var err error
	if lastValueAt.Valid {
		t, err := time.Parse(time.RFC3339, lastValueAt.String)
		if err != nil {
			return fmt.Errorf("parsing last_value_at: %w", err)
		}
		d.LastValueAt = &t
	}
	if lastInteractionAt.Valid {
		t, err := time.Parse(time.RFC3339, lastInteractionAt.String)
		if err != nil {
			return fmt.Errorf("parsing last_interaction_at: %w", err)
		}
		d.LastInteractionAt = &t
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return fmt.Errorf("parsing updated_at: %w", err)
	}

	return nil
}

func scanDeploymentRow(scanner rowScanner) (*Deployment, error) {
	var d Deployment
	if err := scanDeploymentFields(scanner, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDetailRow(scanner rowScanner) (*DeploymentDetail, error) {
	var detail DeploymentDetail
	var category string
	var unit sql.NullString

	err := scanDeploymentFields(scanner, &detail.Deployment,
		&detail.DeviceIdentifier,
		&detail.ComponentIdentifier,
		&detail.ComponentName,
		&category,
		&unit,
	)
	if err != nil {
		return nil, err
	}

	detail.Category = Category(category)
	if unit.Valid {
		detail.Unit = &unit.String
	}

	return &detail, nil
}

// =============================================================================
// SQL helpers
// =============================================================================

// checkAffected maps a zero-row UPDATE/DELETE to the given sentinel error.
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

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableTime returns a sql.NullString for optional time pointers (as RFC3339 strings).
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// nullableFloat returns a sql.NullFloat64 for optional float pointers.
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
