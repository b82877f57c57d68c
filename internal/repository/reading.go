package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ReadingRepository durable telemetry readings
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository creates a reading repository.
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{db: db, logger: logger}
}

// InsertBatch persists a flush batch in a single bulk write (COPY).
func (r *ReadingRepository) InsertBatch(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("readings",
		"id", "device_id", "user_id", "ts",
		"heart_rate", "temperature", "gas_level", "helmet_on",
		"lat", "lng", "battery", "sos", "accident", "humidity", "accel",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare bulk insert: %w", err)
	}

	for _, reading := range readings {
		var accel interface{}
		if reading.Accel != nil {
			accelJSON, err := json.Marshal(reading.Accel)
			if err != nil {
				return fmt.Errorf("failed to marshal accel: %w", err)
			}
			accel = string(accelJSON)
		}

		_, err = stmt.ExecContext(ctx,
			reading.ID,
			reading.DeviceID,
			reading.UserID,
			reading.Timestamp,
			reading.HeartRate,
			reading.Temperature,
			reading.GasLevel,
			reading.HelmetOn,
			reading.Lat,
			reading.Lng,
			reading.Battery,
			reading.SOS,
			reading.Accident,
			reading.Humidity,
			accel,
		)
		if err != nil {
			return fmt.Errorf("failed to buffer reading %s: %w", reading.ID, err)
		}
	}

	// flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush bulk insert: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close bulk insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit readings batch: %w", err)
	}

	r.logger.Debug("Persisted readings batch",
		zap.Int("count", len(readings)),
	)

	return nil
}

// ListByDevice returns recent readings for one device, newest first.
func (r *ReadingRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]models.Reading, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device_id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			id, device_id, user_id, ts,
			heart_rate, temperature, gas_level, helmet_on,
			lat, lng, battery, sos, accident, humidity, accel
		FROM readings
		WHERE device_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var reading models.Reading
		var userID sql.NullString
		var helmetOn, sos, accident sql.NullBool
		var heartRate, temperature, gasLevel, lat, lng, battery, humidity sql.NullFloat64
		var accel []byte

		if err := rows.Scan(
			&reading.ID, &reading.DeviceID, &userID, &reading.Timestamp,
			&heartRate, &temperature, &gasLevel, &helmetOn,
			&lat, &lng, &battery, &sos, &accident, &humidity, &accel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		if userID.Valid {
			reading.UserID = &userID.String
		}
		reading.HeartRate = nullFloat(heartRate)
		reading.Temperature = nullFloat(temperature)
		reading.GasLevel = nullFloat(gasLevel)
		reading.HelmetOn = nullBool(helmetOn)
		reading.Lat = nullFloat(lat)
		reading.Lng = nullFloat(lng)
		reading.Battery = nullFloat(battery)
		reading.SOS = nullBool(sos)
		reading.Accident = nullBool(accident)
		reading.Humidity = nullFloat(humidity)

		if len(accel) > 0 {
			var a models.AccelReading
			if err := json.Unmarshal(accel, &a); err == nil {
				reading.Accel = &a
			}
		}

		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if v.Valid {
		return &v.Float64
	}
	return nil
}

func nullBool(v sql.NullBool) *bool {
	if v.Valid {
		return &v.Bool
	}
	return nil
}
