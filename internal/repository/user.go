package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"go.uber.org/zap"
)

// UserRepository worker/supervisor/admin lookups
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

const userColumns = `id, name, email, phone, role, site_id, shift_id`

// GetUser returns one user by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)
	return scanUser(row)
}

// GetByDevice resolves the worker currently assigned to a device.
func (r *UserRepository) GetByDevice(ctx context.Context, deviceID string) (*models.User, error) {
	query := `
		SELECT u.id, u.name, u.email, u.phone, u.role, u.site_id, u.shift_id
		FROM users u
		JOIN devices d ON d.user_id = u.id
		WHERE d.device_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, deviceID)
	return scanUser(row)
}

// ListAdmins returns every user with administrative privileges.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1`

	rows, err := r.db.QueryContext(ctx, query, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	var admins []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *user)
	}

	return admins, rows.Err()
}

// GetShift returns one shift by id.
func (r *UserRepository) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	query := `SELECT id, name, start_time, end_time FROM shifts WHERE id = $1`

	var shift models.Shift
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&shift.ID, &shift.Name, &shift.StartTime, &shift.EndTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan shift: %w", err)
	}
	return &shift, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var email, phone, siteID, shiftID sql.NullString

	err := row.Scan(
		&user.ID, &user.Name, &email, &phone, &user.Role, &siteID, &shiftID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if email.Valid {
		user.Email = &email.String
	}
	if phone.Valid {
		user.Phone = &phone.String
	}
	if siteID.Valid {
		user.SiteID = &siteID.String
	}
	if shiftID.Valid {
		user.ShiftID = &shiftID.String
	}

	return &user, nil
}
