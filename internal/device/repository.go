package device

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository defines the interface for device persistence.
// This abstraction allows different implementations (SQLite, mock)
// and enables unit testing without database dependencies.
type Repository interface {
	// Upsert inserts a device or replaces the existing row for its name.
	Upsert(ctx context.Context, device *Device) error

	// List retrieves all persisted devices.
	List(ctx context.Context) ([]Device, error)

	// Delete removes a device by name.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, name string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed repository and ensures the
// devices table exists. The db parameter should be an open SQLite
// connection.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS devices (
			name       TEXT PRIMARY KEY,
			protocol   TEXT NOT NULL,
			model      TEXT NOT NULL DEFAULT '',
			address    TEXT NOT NULL DEFAULT '',
			first_seen TIMESTAMP NOT NULL,
			last_seen  TIMESTAMP NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating devices table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Upsert inserts a device or replaces the existing row for its name.
func (r *SQLiteRepository) Upsert(ctx context.Context, device *Device) error {
	query := `
		INSERT INTO devices (name, protocol, model, address, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			protocol = excluded.protocol,
			model = excluded.model,
			address = excluded.address,
			last_seen = excluded.last_seen`

	_, err := r.db.ExecContext(ctx, query,
		device.Name, string(device.Protocol), string(device.Model),
		device.Address, device.FirstSeen, device.LastSeen)
	if err != nil {
		return fmt.Errorf("upserting device: %w", err)
	}
	return nil
}

// List retrieves all persisted devices ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `
		SELECT name, protocol, model, address, first_seen, last_seen
		FROM devices
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		var protocol, model string
		if err := rows.Scan(&d.Name, &protocol, &model, &d.Address,
			&d.FirstSeen, &d.LastSeen); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		d.Protocol = Protocol(protocol)
		d.Model = Model(model)
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Delete removes a device by name.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}
