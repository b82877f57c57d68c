package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"go.uber.org/zap"
)

// DeviceRepository last-known device state rows
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository creates a device repository.
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{db: db, logger: logger}
}

const deviceColumns = `
	device_id, user_id, status, battery_level, lat, lng, last_seen, created_at, updated_at
`

// GetDevice returns one device by id.
func (r *DeviceRepository) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}

	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = $1`

	row := r.db.QueryRowContext(ctx, query, deviceID)
	return scanDevice(row)
}

// UpsertFromReading applies a flushed reading to the device row,
// creating the row for first-seen devices, and returns the result.
// Location and battery only move forward when the reading carried them.
func (r *DeviceRepository) UpsertFromReading(ctx context.Context, deviceID string, reading *models.NormalizedReading, at time.Time) (*models.Device, error) {
	query := `
		INSERT INTO devices (device_id, status, battery_level, lat, lng, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (device_id) DO UPDATE SET
			status        = EXCLUDED.status,
			battery_level = COALESCE(EXCLUDED.battery_level, devices.battery_level),
			lat           = COALESCE(EXCLUDED.lat, devices.lat),
			lng           = COALESCE(EXCLUDED.lng, devices.lng),
			last_seen     = EXCLUDED.last_seen,
			updated_at    = now()
		RETURNING ` + deviceColumns

	row := r.db.QueryRowContext(ctx, query,
		deviceID,
		models.DeviceOnline,
		reading.Battery,
		reading.Lat,
		reading.Lng,
		at,
	)
	return scanDevice(row)
}

// UpdateStatus sets online/offline from a status message.
func (r *DeviceRepository) UpdateStatus(ctx context.Context, deviceID, status string, battery *float64, at time.Time) (*models.Device, error) {
	query := `
		INSERT INTO devices (device_id, status, battery_level, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (device_id) DO UPDATE SET
			status        = EXCLUDED.status,
			battery_level = COALESCE(EXCLUDED.battery_level, devices.battery_level),
			last_seen     = EXCLUDED.last_seen,
			updated_at    = now()
		RETURNING ` + deviceColumns

	row := r.db.QueryRowContext(ctx, query, deviceID, status, battery, at)
	return scanDevice(row)
}

// AssignWorker binds a worker to a device (nil unassigns).
func (r *DeviceRepository) AssignWorker(ctx context.Context, deviceID string, userID *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET user_id = $2, updated_at = now() WHERE device_id = $1`,
		deviceID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign worker: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var device models.Device
	var userID sql.NullString
	var battery, lat, lng sql.NullFloat64
	var lastSeen sql.NullTime

	err := row.Scan(
		&device.DeviceID,
		&userID,
		&device.Status,
		&battery,
		&lat,
		&lng,
		&lastSeen,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan device: %w", err)
	}

	if userID.Valid {
		device.UserID = &userID.String
	}
	device.BatteryLevel = nullFloat(battery)
	device.Lat = nullFloat(lat)
	device.Lng = nullFloat(lng)
	if lastSeen.Valid {
		device.LastSeen = &lastSeen.Time
	}

	return &device, nil
}
