package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"go.uber.org/zap"
)

// AlertRepository persisted safety alerts
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository creates an alert repository.
func NewAlertRepository(db *sql.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{db: db, logger: logger}
}

const alertColumns = `
	id, device_id, user_id, type, severity, status, message, value,
	attendance_id, escalated, escalated_at, acknowledged_by, ts, created_at, updated_at
`

// Insert persists one alert.
func (r *AlertRepository) Insert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, device_id, user_id, type, severity, status, message, value, attendance_id, escalated, ts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, now(), now())
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.DeviceID, alert.UserID,
		alert.Type, alert.Severity, alert.Status,
		alert.Message, alert.Value, alert.AttendanceID,
		alert.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert returns one alert by id.
func (r *AlertRepository) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanAlert(row)
}

// HasRecentNew reports whether an alert of the same device and type
// with status=new was created inside the debounce window. Best-effort:
// concurrent evaluation may still produce the odd duplicate.
func (r *AlertRepository) HasRecentNew(ctx context.Context, deviceID, alertType string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE device_id = $1
			  AND type = $2
			  AND status = $3
			  AND ts >= $4
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, deviceID, alertType, models.AlertStatusNew, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}
	return exists, nil
}

// UpdateStatus moves an alert through acknowledge/resolve.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id, status string, actor *string) (*models.Alert, error) {
	query := `
		UPDATE alerts
		SET status = $2,
		    acknowledged_by = COALESCE($3, acknowledged_by),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + alertColumns

	row := r.db.QueryRowContext(ctx, query, id, status, actor)
	return scanAlert(row)
}

// FindEscalatable selects critical, unacknowledged, not yet escalated
// alerts older than the cutoff.
func (r *AlertRepository) FindEscalatable(ctx context.Context, cutoff time.Time) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE severity = $1
		  AND status = $2
		  AND escalated = false
		  AND ts < $3
		ORDER BY ts ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.SeverityCritical, models.AlertStatusNew, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalatable alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	return alerts, rows.Err()
}

// MarkEscalated flips the escalated flag exactly once; the WHERE guard
// makes repeated sweeps idempotent.
func (r *AlertRepository) MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts
		 SET escalated = true, escalated_at = $2, updated_at = now()
		 WHERE id = $1 AND escalated = false`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark alert escalated: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var alert models.Alert
	var userID, attendanceID, acknowledgedBy sql.NullString
	var value sql.NullFloat64
	var escalatedAt sql.NullTime

	err := row.Scan(
		&alert.ID,
		&alert.DeviceID,
		&userID,
		&alert.Type,
		&alert.Severity,
		&alert.Status,
		&alert.Message,
		&value,
		&attendanceID,
		&alert.Escalated,
		&escalatedAt,
		&acknowledgedBy,
		&alert.Timestamp,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	if userID.Valid {
		alert.UserID = &userID.String
	}
	if attendanceID.Valid {
		alert.AttendanceID = &attendanceID.String
	}
	if acknowledgedBy.Valid {
		alert.AcknowledgedBy = &acknowledgedBy.String
	}
	alert.Value = nullFloat(value)
	if escalatedAt.Valid {
		alert.EscalatedAt = &escalatedAt.Time
	}

	return &alert, nil
}
