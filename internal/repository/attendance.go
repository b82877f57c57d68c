package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"go.uber.org/zap"
)

// ErrNotFound no row matched the query
var ErrNotFound = errors.New("not found")

// AttendanceRepository per-(worker, date) attendance records.
// Uniqueness of (user_id, work_date) is enforced by a DB unique index;
// CreateCheckIn relies on it instead of a check-then-act read.
type AttendanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttendanceRepository creates an attendance repository.
func NewAttendanceRepository(db *sql.DB, logger *zap.Logger) *AttendanceRepository {
	return &AttendanceRepository{db: db, logger: logger}
}

const attendanceColumns = `
	id, user_id, site_id, work_date, check_in_time, check_out_time,
	duration_minutes, status, verified, job_role, alert_ids, created_at, updated_at
`

// GetByID returns one attendance record by id.
func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanAttendance(row)
}

// FindByUserAndDate returns the record for one (worker, date) key.
func (r *AttendanceRepository) FindByUserAndDate(ctx context.Context, userID, workDate string) (*models.Attendance, error) {
	if userID == "" || workDate == "" {
		return nil, fmt.Errorf("user_id and work_date are required")
	}

	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE user_id = $1 AND work_date = $2`

	row := r.db.QueryRowContext(ctx, query, userID, workDate)
	return scanAttendance(row)
}

// CreateCheckIn inserts a new attendance record atomically. When a row
// for the (worker, date) key already exists, the existing record is
// returned with inserted=false and nothing is written.
func (r *AttendanceRepository) CreateCheckIn(ctx context.Context, att *models.Attendance) (*models.Attendance, bool, error) {
	query := `
		INSERT INTO attendance (id, user_id, site_id, work_date, check_in_time, status, verified, job_role, alert_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '[]', now(), now())
		ON CONFLICT (user_id, work_date) DO NOTHING
		RETURNING ` + attendanceColumns

	row := r.db.QueryRowContext(ctx, query,
		att.ID, att.UserID, att.SiteID, att.WorkDate,
		att.CheckInTime, att.Status, att.Verified, att.JobRole,
	)

	created, err := scanAttendance(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	// lost the race (or duplicate scan): hand back the existing record
	existing, err := r.FindByUserAndDate(ctx, att.UserID, att.WorkDate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing attendance: %w", err)
	}
	return existing, false, nil
}

// SetCheckOut closes an open record. The WHERE guard on
// check_out_time keeps the CHECKED_OUT state terminal even under
// concurrent duplicate scans.
func (r *AttendanceRepository) SetCheckOut(ctx context.Context, id string, checkOut time.Time, durationMinutes int, status string, verified bool) (*models.Attendance, error) {
	query := `
		UPDATE attendance
		SET check_out_time = $2,
		    duration_minutes = $3,
		    status = $4,
		    verified = verified OR $5,
		    updated_at = now()
		WHERE id = $1
		  AND check_out_time IS NULL
		RETURNING ` + attendanceColumns

	row := r.db.QueryRowContext(ctx, query, id, checkOut, durationMinutes, status, verified)
	return scanAttendance(row)
}

// MarkVerified flags a record as supervisor-verified.
func (r *AttendanceRepository) MarkVerified(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendance SET verified = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark attendance verified: %w", err)
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

// AppendAlert links a persisted alert to an open attendance record.
func (r *AttendanceRepository) AppendAlert(ctx context.Context, id, alertID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE attendance
		 SET alert_ids = alert_ids || to_jsonb($2::text),
		     updated_at = now()
		 WHERE id = $1`,
		id, alertID,
	)
	if err != nil {
		return fmt.Errorf("failed to append alert to attendance: %w", err)
	}
	return nil
}

// UpdateTimes applies a manual correction; duration is recomputed by
// the caller so the stored value always matches the timestamps.
func (r *AttendanceRepository) UpdateTimes(ctx context.Context, id string, checkIn time.Time, checkOut *time.Time, durationMinutes *int, status string) (*models.Attendance, error) {
	query := `
		UPDATE attendance
		SET check_in_time = $2,
		    check_out_time = $3,
		    duration_minutes = $4,
		    status = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + attendanceColumns

	row := r.db.QueryRowContext(ctx, query, id, checkIn, checkOut, durationMinutes, status)
	return scanAttendance(row)
}

// FindOpenByUser returns the worker's open (not checked out) record
// for the given date.
func (r *AttendanceRepository) FindOpenByUser(ctx context.Context, userID, workDate string) (*models.Attendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE user_id = $1 AND work_date = $2 AND check_out_time IS NULL`

	row := r.db.QueryRowContext(ctx, query, userID, workDate)
	return scanAttendance(row)
}

func scanAttendance(row rowScanner) (*models.Attendance, error) {
	var att models.Attendance
	var workDate time.Time
	var checkOut sql.NullTime
	var duration sql.NullInt64
	var jobRole sql.NullString
	var alertIDs []byte

	err := row.Scan(
		&att.ID,
		&att.UserID,
		&att.SiteID,
		&workDate,
		&att.CheckInTime,
		&checkOut,
		&duration,
		&att.Status,
		&att.Verified,
		&jobRole,
		&alertIDs,
		&att.CreatedAt,
		&att.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan attendance: %w", err)
	}

	att.WorkDate = workDate.Format("2006-01-02")
	if checkOut.Valid {
		att.CheckOutTime = &checkOut.Time
	}
	if duration.Valid {
		d := int(duration.Int64)
		att.DurationMinutes = &d
	}
	if jobRole.Valid {
		att.JobRole = &jobRole.String
	}
	if len(alertIDs) > 0 {
		if err := json.Unmarshal(alertIDs, &att.AlertIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert_ids: %w", err)
		}
	}

	return &att, nil
}
