package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ThresholdRepository alert threshold configuration
type ThresholdRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewThresholdRepository creates a threshold repository.
func NewThresholdRepository(db *sql.DB, logger *zap.Logger) *ThresholdRepository {
	return &ThresholdRepository{db: db, logger: logger}
}

// GetCurrent returns the active thresholds document. When duplicates
// exist the most recently created one wins.
func (r *ThresholdRepository) GetCurrent(ctx context.Context) (*models.Thresholds, error) {
	query := `
		SELECT id, temperature_max, gas_max, heart_rate_min, heart_rate_max
		FROM thresholds
		ORDER BY created_at DESC
		LIMIT 1
	`

	var t models.Thresholds
	err := r.db.QueryRowContext(ctx, query).Scan(
		&t.ID, &t.TemperatureMax, &t.GasMax, &t.HeartRateMin, &t.HeartRateMax,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan thresholds: %w", err)
	}

	return &t, nil
}

// Save creates a new thresholds document (becoming the current one).
func (r *ThresholdRepository) Save(ctx context.Context, t *models.Thresholds) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO thresholds (id, temperature_max, gas_max, heart_rate_min, heart_rate_max, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		t.ID, t.TemperatureMax, t.GasMax, t.HeartRateMin, t.HeartRateMax,
	)
	if err != nil {
		return fmt.Errorf("failed to insert thresholds: %w", err)
	}
	return nil
}
