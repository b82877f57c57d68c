package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"go.uber.org/zap"
)

// AuditRepository structured audit entries for manual corrections
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Insert appends one audit entry.
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, actor, action, entity_type, entity_id, before, after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Actor, entry.Action,
		entry.EntityType, entry.EntityID,
		nullableJSON(entry.Before), nullableJSON(entry.After),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return string(raw)
}
