package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/events"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	stateKeyPrefix = "helmetx:device:"
	stateKeySuffix = ":state"
	stateTTL       = time.Hour
)

// Repository durable device rows behind the state store
type Repository interface {
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	UpsertFromReading(ctx context.Context, deviceID string, reading *models.NormalizedReading, at time.Time) (*models.Device, error)
	UpdateStatus(ctx context.Context, deviceID, status string, battery *float64, at time.Time) (*models.Device, error)
}

// StateStore last-known location/battery/connectivity per device.
// Writes go through to Postgres with a Redis shadow copy for cheap
// dashboard reads.
type StateStore struct {
	repo        Repository
	redisClient *redis.Client
	emitter     events.Emitter
	logger      *zap.Logger
}

// NewStateStore creates a device state store.
func NewStateStore(repo Repository, redisClient *redis.Client, emitter events.Emitter, logger *zap.Logger) *StateStore {
	return &StateStore{
		repo:        repo,
		redisClient: redisClient,
		emitter:     emitter,
		logger:      logger,
	}
}

func stateKey(deviceID string) string {
	return stateKeyPrefix + deviceID + stateKeySuffix
}

// ApplyReading folds a flushed reading into last-known state and
// returns the updated device.
func (s *StateStore) ApplyReading(ctx context.Context, deviceID string, reading *models.NormalizedReading, at time.Time) (*models.Device, error) {
	device, err := s.repo.UpsertFromReading(ctx, deviceID, reading, at)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device state: %w", err)
	}

	s.cacheState(ctx, device)
	return device, nil
}

// SetStatus applies an online/offline status message and emits a
// device_status event.
func (s *StateStore) SetStatus(ctx context.Context, deviceID, status string, battery *float64, at time.Time) (*models.Device, error) {
	if status != models.DeviceOnline && status != models.DeviceOffline {
		return nil, fmt.Errorf("invalid device status: %s", status)
	}

	device, err := s.repo.UpdateStatus(ctx, deviceID, status, battery, at)
	if err != nil {
		return nil, fmt.Errorf("failed to update device status: %w", err)
	}

	s.cacheState(ctx, device)
	s.emitter.Emit(ctx, models.EventDeviceStatus, device)
	return device, nil
}

// GetState returns last-known state, preferring the Redis shadow and
// falling back to the durable row.
func (s *StateStore) GetState(ctx context.Context, deviceID string) (*models.Device, error) {
	val, err := s.redisClient.Get(ctx, stateKey(deviceID)).Result()
	if err == nil {
		var device models.Device
		if err := json.Unmarshal([]byte(val), &device); err == nil {
			return &device, nil
		}
		// corrupt shadow entry, fall through to the durable row
	} else if err != redis.Nil {
		s.logger.Warn("Device state cache read failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	return s.repo.GetDevice(ctx, deviceID)
}

// cacheState refreshes the shadow copy; cache failures only degrade
// read latency so they are logged and ignored.
func (s *StateStore) cacheState(ctx context.Context, device *models.Device) {
	jsonData, err := json.Marshal(device)
	if err != nil {
		s.logger.Error("Failed to marshal device state", zap.Error(err))
		return
	}

	if err := s.redisClient.Set(ctx, stateKey(device.DeviceID), jsonData, stateTTL).Err(); err != nil {
		s.logger.Warn("Failed to cache device state",
			zap.String("device_id", device.DeviceID),
			zap.Error(err),
		)
	}
}
