package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
)

func setupMockDeviceDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *DeviceRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewDeviceRepository(db, logger)

	return db, mock, repo
}

func deviceRows(deviceID, status string, battery interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"device_id", "user_id", "status", "battery_level", "lat", "lng",
		"last_seen", "created_at", "updated_at",
	}).AddRow(
		deviceID, nil, status, battery, nil, nil, time.Now(), time.Now(), time.Now(),
	)
}

func TestGetDevice(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM devices`).
		WithArgs("H1").
		WillReturnRows(deviceRows("H1", models.DeviceOnline, 87.0))

	device, err := repo.GetDevice(context.Background(), "H1")
	require.NoError(t, err)
	assert.Equal(t, "H1", device.DeviceID)
	assert.Equal(t, models.DeviceOnline, device.Status)
	require.NotNil(t, device.BatteryLevel)
	assert.Equal(t, 87.0, *device.BatteryLevel)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDevice_NotFoundSentinel(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM devices`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDevice(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignWorker_NotFoundSentinel(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	userID := "w1"
	mock.ExpectExec(`UPDATE devices SET user_id`).
		WithArgs("missing", "w1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AssignWorker(context.Background(), "missing", &userID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
