package telemetry

import (
	"context"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReadingStore persists flushed readings in one bulk write.
type ReadingStore interface {
	InsertBatch(ctx context.Context, readings []models.Reading) error
}

// DeviceStateStore applies a flushed reading to last-known device state
// and returns the updated device (including the assigned worker).
type DeviceStateStore interface {
	ApplyReading(ctx context.Context, deviceID string, reading *models.NormalizedReading, at time.Time) (*models.Device, error)
}

// AlertEvaluator evaluates threshold rules over one flushed reading.
type AlertEvaluator interface {
	EvaluateReading(ctx context.Context, reading models.Reading)
}

// Emitter fans state changes out to subscribers.
type Emitter interface {
	Emit(ctx context.Context, event string, payload interface{})
}

// Flusher periodic task draining the telemetry buffer into durable
// readings and triggering alert evaluation.
type Flusher struct {
	buffer   *Buffer
	interval time.Duration
	readings ReadingStore
	state    DeviceStateStore
	engine   AlertEvaluator
	emitter  Emitter
	logger   *zap.Logger

	now func() time.Time // injectable for tests
}

// NewFlusher creates a flusher over the given buffer.
func NewFlusher(
	buffer *Buffer,
	interval time.Duration,
	readings ReadingStore,
	state DeviceStateStore,
	engine AlertEvaluator,
	emitter Emitter,
	logger *zap.Logger,
) *Flusher {
	return &Flusher{
		buffer:   buffer,
		interval: interval,
		readings: readings,
		state:    state,
		engine:   engine,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the flush loop until the context is cancelled.
func (f *Flusher) Start(ctx context.Context) error {
	f.logger.Info("Telemetry flusher started",
		zap.Duration("interval", f.interval),
	)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Telemetry flusher stopped")
			return nil
		case <-ticker.C:
			f.Flush(ctx)
		}
	}
}

// Flush drains the buffer once. The snapshot happens before any I/O so
// a second timer firing mid-flush cannot reprocess claimed entries.
func (f *Flusher) Flush(ctx context.Context) {
	snapshot := f.buffer.SnapshotAndClear()
	if len(snapshot) == 0 {
		return
	}

	batch := make([]models.Reading, 0, len(snapshot))

	for deviceID, entry := range snapshot {
		reading := models.Reading{
			ID:                uuid.New().String(),
			DeviceID:          deviceID,
			Timestamp:         entry.ReceivedAt,
			NormalizedReading: *entry.Reading,
		}

		// Update last-known device state; the updated row carries the
		// assigned worker for the reading and for alert linkage.
		device, err := f.state.ApplyReading(ctx, deviceID, entry.Reading, entry.ReceivedAt)
		if err != nil {
			f.logger.Error("Failed to update device state",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		} else if device != nil {
			reading.UserID = device.UserID
		}

		batch = append(batch, reading)

		f.emitter.Emit(ctx, models.EventSensorUpdate, reading)
	}

	// Telemetry is best-effort: a failed bulk write is logged and the
	// batch is dropped, no retry.
	if err := f.readings.InsertBatch(ctx, batch); err != nil {
		f.logger.Error("Failed to persist readings batch, dropping",
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
	}

	// Rule evaluation runs regardless of readings persistence; losing a
	// telemetry row must not swallow a safety alert.
	for _, reading := range batch {
		f.engine.EvaluateReading(ctx, reading)
	}

	f.logger.Debug("Flushed telemetry buffer",
		zap.Int("device_count", len(batch)),
	)
}
