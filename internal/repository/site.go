package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"go.uber.org/zap"
)

// SiteRepository read-only site/geofence lookups
type SiteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSiteRepository creates a site repository.
func NewSiteRepository(db *sql.DB, logger *zap.Logger) *SiteRepository {
	return &SiteRepository{db: db, logger: logger}
}

// GetSite returns one site by id.
func (r *SiteRepository) GetSite(ctx context.Context, id string) (*models.Site, error) {
	if id == "" {
		return nil, fmt.Errorf("site id is required")
	}

	query := `SELECT id, name, lat, lng, radius_m, shift_start, shift_end FROM sites WHERE id = $1`

	var site models.Site
	var shiftStart, shiftEnd sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&site.ID, &site.Name, &site.Lat, &site.Lng, &site.RadiusM,
		&shiftStart, &shiftEnd,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan site: %w", err)
	}

	if shiftStart.Valid {
		site.ShiftStart = shiftStart.String
	}
	if shiftEnd.Valid {
		site.ShiftEnd = shiftEnd.String
	}

	return &site, nil
}
