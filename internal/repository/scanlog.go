package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"go.uber.org/zap"
)

// ScanLogRepository append-only scan attempt audit trail
type ScanLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewScanLogRepository creates a scan log repository.
func NewScanLogRepository(db *sql.DB, logger *zap.Logger) *ScanLogRepository {
	return &ScanLogRepository{db: db, logger: logger}
}

// Insert appends one scan attempt record.
func (r *ScanLogRepository) Insert(ctx context.Context, log *models.ScanLog) error {
	query := `
		INSERT INTO scan_logs (id, user_id, device_id, site_id, scan_type, status, reason, lat, lng, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.UserID, log.DeviceID, log.SiteID,
		log.ScanType, log.Status, log.Reason,
		log.Lat, log.Lng, log.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan log: %w", err)
	}
	return nil
}

// ListByUser returns recent scan attempts for one worker, newest first.
func (r *ScanLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.ScanLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, device_id, site_id, scan_type, status, reason, lat, lng, scanned_at
		FROM scan_logs
		WHERE user_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ScanLog
	for rows.Next() {
		var log models.ScanLog
		var uid, deviceID, siteID, reason sql.NullString
		var lat, lng sql.NullFloat64

		if err := rows.Scan(
			&log.ID, &uid, &deviceID, &siteID,
			&log.ScanType, &log.Status, &reason,
			&lat, &lng, &log.ScannedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scan log: %w", err)
		}

		if uid.Valid {
			log.UserID = &uid.String
		}
		if deviceID.Valid {
			log.DeviceID = &deviceID.String
		}
		if siteID.Valid {
			log.SiteID = &siteID.String
		}
		if reason.Valid {
			log.Reason = reason.String
		}
		log.Lat = nullFloat(lat)
		log.Lng = nullFloat(lng)

		logs = append(logs, log)
	}

	return logs, rows.Err()
}
