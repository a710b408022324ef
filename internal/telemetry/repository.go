package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reading is one immutable sensor fact. Readings are append-only; the
// core never updates or deletes them.
type Reading struct {
	ID           string    `json:"id"`
	DeploymentID string    `json:"deployment_id"`
	Value        float64   `json:"value"`
	Unit         string    `json:"unit,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Repository defines the interface for sensor reading persistence.
type Repository interface {
	// Append writes a reading.
	Append(ctx context.Context, reading *Reading) error

	// Latest retrieves the most recent reading for a deployment.
	Latest(ctx context.Context, deploymentID string) (*Reading, error)

	// ListByDeployment retrieves recent readings, newest first.
	ListByDeployment(ctx context.Context, deploymentID string, limit int) ([]Reading, error)

	// ListWindow retrieves readings inside [from, to), oldest first,
	// for charting.
	ListWindow(ctx context.Context, deploymentID string, from, to time.Time) ([]Reading, error)
}

// readingColumns is the SELECT column list for reading queries.
const readingColumns = `id, deployment_id, value, unit, recorded_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append writes a reading.
func (r *SQLiteRepository) Append(ctx context.Context, reading *Reading) error {
	if reading.ID == "" {
		reading.ID = GenerateID()
	}
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sensor_readings (id, deployment_id, value, unit, recorded_at)
		VALUES (?, ?, ?, ?, ?)`

	var unit sql.NullString
	if reading.Unit != "" {
		unit = sql.NullString{String: reading.Unit, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		reading.ID,
		reading.DeploymentID,
		reading.Value,
		unit,
		reading.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// Latest retrieves the most recent reading for a deployment.
func (r *SQLiteRepository) Latest(ctx context.Context, deploymentID string) (*Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings
		WHERE deployment_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`

	readings, err := r.queryReadings(ctx, query, deploymentID)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, ErrReadingNotFound
	}
	return &readings[0], nil
}

// ListByDeployment retrieves recent readings, newest first.
func (r *SQLiteRepository) ListByDeployment(ctx context.Context, deploymentID string, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `SELECT ` + readingColumns + ` FROM sensor_readings
		WHERE deployment_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`
	return r.queryReadings(ctx, query, deploymentID, limit)
}

// ListWindow retrieves readings inside [from, to), oldest first.
func (r *SQLiteRepository) ListWindow(ctx context.Context, deploymentID string, from, to time.Time) ([]Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM sensor_readings
		WHERE deployment_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at, id`
	return r.queryReadings(ctx, query,
		deploymentID,
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	)
}

func (r *SQLiteRepository) queryReadings(ctx context.Context, query string, args ...any) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var reading Reading
		var unit sql.NullString
		var recordedAt string

		if err := rows.Scan(&reading.ID, &reading.DeploymentID, &reading.Value, &unit, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		if unit.Valid {
			reading.Unit = unit.String
		}
		if t, parseErr := time.Parse(time.RFC3339, recordedAt); parseErr == nil {
			reading.RecordedAt = t
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// GenerateID creates a new UUID for a reading.
func GenerateID() string {
	return uuid.New().String()
}
