package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// deviceColumns is the column list shared by every device SELECT.
const deviceColumns = `id, identifier, name, device_type, model, ip_address,
	firmware_version, connection_status, last_heartbeat_at, metadata, active,
	created_at, updated_at`

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByIdentifier retrieves a device by its MQTT identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByIdentifier(ctx context.Context, identifier string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the ID or identifier is already taken.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// UpdateConnectionStatus sets the connection status of a device and,
	// when the device is coming online, stamps the heartbeat time.
	// Returns ErrDeviceNotFound if the device does not exist.
	UpdateConnectionStatus(ctx context.Context, id string, status ConnectionStatus, seenAt time.Time) error

	// MarkStaleOffline transitions online devices whose last heartbeat is
	// older than the cutoff to offline. Returns the IDs it transitioned.
	// Devices already offline are not touched, so repeated sweeps are
	// idempotent.
	MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error)

	// CountByStatus returns device counts grouped by connection status.
	// Only active devices are counted.
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// GetByIdentifier retrieves a device by its MQTT identifier.
func (r *SQLiteRepository) GetByIdentifier(ctx context.Context, identifier string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE identifier = ?`

	row := r.db.QueryRowContext(ctx, query, identifier)
	d, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by identifier: %w", err)
	}
	return d, nil
}

// List retrieves all devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY name`
	return r.queryDevices(ctx, query)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	metadataJSON, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	if device.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	if device.ConnectionStatus == "" {
		device.ConnectionStatus = StatusUnknown
	}

	// Set timestamps if not set
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	query := `
		INSERT INTO devices (
			id, identifier, name, device_type, model, ip_address,
			firmware_version, connection_status, last_heartbeat_at, metadata,
			active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		device.ID,
		device.Identifier,
		device.Name,
		device.DeviceType,
		nullableString(device.Model),
		nullableString(device.IPAddress),
		nullableString(device.FirmwareVersion),
		string(device.ConnectionStatus),
		nullableTime(device.LastHeartbeatAt),
		string(metadataJSON),
		boolToInt(device.Active),
		device.CreatedAt.Format(time.RFC3339),
		device.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	metadataJSON, err := json.Marshal(device.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	if device.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	device.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices
		SET identifier = ?, name = ?, device_type = ?, model = ?,
		    ip_address = ?, firmware_version = ?, connection_status = ?,
		    last_heartbeat_at = ?, metadata = ?, active = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		device.Identifier,
		device.Name,
		device.DeviceType,
		nullableString(device.Model),
		nullableString(device.IPAddress),
		nullableString(device.FirmwareVersion),
		string(device.ConnectionStatus),
		nullableTime(device.LastHeartbeatAt),
		string(metadataJSON),
		boolToInt(device.Active),
		device.UpdatedAt.Format(time.RFC3339),
		device.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("updating device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// UpdateConnectionStatus sets the connection status of a device.
// Coming online also stamps last_heartbeat_at with seenAt.
func (r *SQLiteRepository) UpdateConnectionStatus(ctx context.Context, id string, status ConnectionStatus, seenAt time.Time) error {
	now := time.Now().UTC()

	var result sql.Result
	var err error
	if status == StatusOnline {
		query := `
			UPDATE devices
			SET connection_status = ?, last_heartbeat_at = ?, updated_at = ?
			WHERE id = ?`
		result, err = r.db.ExecContext(ctx, query,
			string(status),
			seenAt.UTC().Format(time.RFC3339),
			now.Format(time.RFC3339),
			id,
		)
	} else {
		query := `
			UPDATE devices
			SET connection_status = ?, updated_at = ?
			WHERE id = ?`
		result, err = r.db.ExecContext(ctx, query,
			string(status),
			now.Format(time.RFC3339),
			id,
		)
	}
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// MarkStaleOffline transitions stale online devices to offline.
func (r *SQLiteRepository) MarkStaleOffline(ctx context.Context, cutoff time.Time) ([]string, error) {
	// Devices with no heartbeat at all are also considered stale once
	// they have claimed to be online.
	selectQuery := `
		SELECT id FROM devices
		WHERE connection_status = ?
		  AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)`

	rows, err := r.db.QueryContext(ctx, selectQuery,
		string(StatusOnline),
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("selecting stale devices: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning stale device id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stale devices: %w", err)
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
		"UPDATE devices SET connection_status = ?, updated_at = ? WHERE id IN (%s)",
		placeholders,
	)
	if _, err := r.db.ExecContext(ctx, updateQuery, args...); err != nil {
		return nil, fmt.Errorf("marking devices offline: %w", err)
	}

	return ids, nil
}

// CountByStatus returns active device counts grouped by connection status.
func (r *SQLiteRepository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	query := `
		SELECT connection_status, COUNT(*)
		FROM devices
		WHERE active = 1
		GROUP BY connection_status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("counting devices: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, fmt.Errorf("scanning device counts: %w", err)
		}
		switch ConnectionStatus(status) {
		case StatusOnline:
			counts.Online = count
		case StatusOffline:
			counts.Offline = count
		default:
			counts.Unknown += count
		}
	}
	if err := rows.Err(); err != nil {
		return StatusCounts{}, fmt.Errorf("iterating device counts: %w", err)
	}

	return counts, nil
}

// queryDevices executes a query and returns a slice of devices.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var d Device
	var model, ipAddress, firmwareVersion sql.NullString
	var lastHeartbeatAt sql.NullString
	var metadataJSON, status string
	var active int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.Identifier,
		&d.Name,
		&d.DeviceType,
		&model,
		&ipAddress,
		&firmwareVersion,
		&status,
		&lastHeartbeatAt,
		&metadataJSON,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.ConnectionStatus = ConnectionStatus(status)
	d.Active = active != 0

	if model.Valid {
		d.Model = &model.String
	}
	if ipAddress.Valid {
		d.IPAddress = &ipAddress.String
	}
	if firmwareVersion.Valid {
		d.FirmwareVersion = &firmwareVersion.String
	}

	if lastHeartbeatAt.Valid {
		t, err := time.Parse(time.RFC3339, lastHeartbeatAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_heartbeat_at: %w", err)
		}
		d.LastHeartbeatAt = &t
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
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
