package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
)

func TestInsertBatch_SingleBulkWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingRepository(db, zap.NewNop())

	temp := 39.0
	gas := 100.0
	readings := []models.Reading{
		{
			ID:        uuid.New().String(),
			DeviceID:  "H1",
			Timestamp: time.Now(),
			NormalizedReading: models.NormalizedReading{
				Temperature: &temp,
				GasLevel:    &gas,
			},
		},
		{
			ID:        uuid.New().String(),
			DeviceID:  "H2",
			Timestamp: time.Now(),
		},
	}

	mock.ExpectBegin()
	mock.ExpectPrepare(`COPY "readings"`)
	mock.ExpectExec(`COPY "readings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`COPY "readings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	// final exec flushes the COPY buffer
	mock.ExpectExec(`COPY "readings"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = repo.InsertBatch(context.Background(), readings)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_EmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingRepository(db, zap.NewNop())

	err = repo.InsertBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByDevice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReadingRepository(db, zap.NewNop())

	rows := sqlmock.NewRows([]string{
		"id", "device_id", "user_id", "ts",
		"heart_rate", "temperature", "gas_level", "helmet_on",
		"lat", "lng", "battery", "sos", "accident", "humidity", "accel",
	}).AddRow(
		uuid.New().String(), "H1", nil, time.Now(),
		72.0, 36.6, nil, true,
		nil, nil, 90.0, false, nil, nil, []byte(`{"x":0.1,"y":0.2,"z":9.8}`),
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs("H1", 10).
		WillReturnRows(rows)

	readings, err := repo.ListByDevice(context.Background(), "H1", 10)
	require.NoError(t, err)
	require.Len(t, readings, 1)

	r := readings[0]
	require.NotNil(t, r.HeartRate)
	assert.Equal(t, 72.0, *r.HeartRate)
	assert.Nil(t, r.GasLevel)
	require.NotNil(t, r.HelmetOn)
	assert.True(t, *r.HelmetOn)
	require.NotNil(t, r.Accel)
	assert.Equal(t, 9.8, *r.Accel.Z)

	assert.NoError(t, mock.ExpectationsWereMet())
}
