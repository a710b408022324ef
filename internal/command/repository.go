package command

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository defines the interface for command log persistence.
type Repository interface {
	// Append writes a command record. The log is append-only.
	Append(ctx context.Context, rec *Record) error

	// ListByDeployment retrieves recent records for a deployment,
	// newest first.
	ListByDeployment(ctx context.Context, deploymentID string, limit int) ([]Record, error)
}

// recordColumns is the SELECT column list for command log queries.
const recordColumns = `id, deployment_id, command, parameters, source, issued_by, delivered, recorded_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append writes a command record.
func (r *SQLiteRepository) Append(ctx context.Context, rec *Record) error {
	paramsJSON, err := marshalParameters(rec.Parameters)
	if err != nil {
		return fmt.Errorf("marshalling parameters: %w", err)
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO actuator_commands (
			id, deployment_id, command, parameters, source, issued_by, delivered, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.DeploymentID,
		rec.Command,
		paramsJSON,
		rec.Source,
		nullableString(rec.IssuedBy),
		boolToInt(rec.Delivered),
		rec.RecordedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting command record: %w", err)
	}
	return nil
}

// ListByDeployment retrieves recent command records, newest first.
func (r *SQLiteRepository) ListByDeployment(ctx context.Context, deploymentID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `SELECT ` + recordColumns + ` FROM actuator_commands
		WHERE deployment_id = ?
		ORDER BY recorded_at DESC, id
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, deploymentID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying command records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var paramsJSON, issuedBy sql.NullString
		var delivered int
		var recordedAt string

		err := rows.Scan(
			&rec.ID,
			&rec.DeploymentID,
			&rec.Command,
			&paramsJSON,
			&rec.Source,
			&issuedBy,
			&delivered,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning command record: %w", err)
		}

		rec.Delivered = delivered != 0
		if issuedBy.Valid {
			rec.IssuedBy = &issuedBy.String
		}
		if t, parseErr := time.Parse(time.RFC3339, recordedAt); parseErr == nil {
			rec.RecordedAt = t
		}
		if paramsJSON.Valid && paramsJSON.String != "" && paramsJSON.String != "null" {
			if jsonErr := json.Unmarshal([]byte(paramsJSON.String), &rec.Parameters); jsonErr != nil {
				return nil, fmt.Errorf("unmarshalling parameters: %w", jsonErr)
			}
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command records: %w", err)
	}
	return records, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
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
