package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReadingStore struct {
	mu      sync.Mutex
	batches [][]models.Reading
	err     error
}

func (f *fakeReadingStore) InsertBatch(ctx context.Context, readings []models.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, readings)
	return nil
}

type fakeStateStore struct {
	mu      sync.Mutex
	applied []string
	userID  *string
	err     error
}

func (f *fakeStateStore) ApplyReading(ctx context.Context, deviceID string, reading *models.NormalizedReading, at time.Time) (*models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, deviceID)
	return &models.Device{DeviceID: deviceID, UserID: f.userID, Status: models.DeviceOnline}, nil
}

type fakeEvaluator struct {
	mu       sync.Mutex
	readings []models.Reading
}

func (f *fakeEvaluator) EvaluateReading(ctx context.Context, reading models.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, reading)
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEmitter) Emit(ctx context.Context, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func newTestFlusher(buffer *Buffer, store *fakeReadingStore, state *fakeStateStore, eval *fakeEvaluator, emitter *fakeEmitter) *Flusher {
	return NewFlusher(buffer, 10*time.Second, store, state, eval, emitter, zap.NewNop())
}

func TestFlusher_FlushDrainsBufferOnce(t *testing.T) {
	buffer := NewBuffer()
	store := &fakeReadingStore{}
	uid := "worker-1"
	state := &fakeStateStore{userID: &uid}
	eval := &fakeEvaluator{}
	emitter := &fakeEmitter{}

	buffer.Put(Entry{
		DeviceID:   "H1",
		Reading:    &models.NormalizedReading{Temperature: floatPtr(39.0)},
		ReceivedAt: time.Now(),
	})
	buffer.Put(Entry{
		DeviceID:   "H2",
		Reading:    &models.NormalizedReading{HeartRate: floatPtr(70.0)},
		ReceivedAt: time.Now(),
	})

	f := newTestFlusher(buffer, store, state, eval, emitter)
	f.Flush(context.Background())

	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
	assert.Equal(t, 0, buffer.Len())

	// worker resolved from device state lands on the reading
	for _, r := range store.batches[0] {
		require.NotNil(t, r.UserID)
		assert.Equal(t, "worker-1", *r.UserID)
	}

	// alert engine invoked per flushed device
	assert.Len(t, eval.readings, 2)

	// a second flush with an empty buffer does nothing
	f.Flush(context.Background())
	assert.Len(t, store.batches, 1)
	assert.Len(t, eval.readings, 2)
}

func TestFlusher_PersistFailureDropsBatch(t *testing.T) {
	buffer := NewBuffer()
	store := &fakeReadingStore{err: errors.New("db down")}
	state := &fakeStateStore{}
	eval := &fakeEvaluator{}
	emitter := &fakeEmitter{}

	buffer.Put(Entry{
		DeviceID:   "H1",
		Reading:    &models.NormalizedReading{GasLevel: floatPtr(500.0)},
		ReceivedAt: time.Now(),
	})

	f := newTestFlusher(buffer, store, state, eval, emitter)
	f.Flush(context.Background())

	// batch dropped, no retry
	assert.Empty(t, store.batches)
	assert.Equal(t, 0, buffer.Len())

	// alerts still evaluated for the flushed values
	assert.Len(t, eval.readings, 1)
}

func TestFlusher_StateFailureStillPersists(t *testing.T) {
	buffer := NewBuffer()
	store := &fakeReadingStore{}
	state := &fakeStateStore{err: errors.New("redis down")}
	eval := &fakeEvaluator{}
	emitter := &fakeEmitter{}

	buffer.Put(Entry{
		DeviceID:   "H1",
		Reading:    &models.NormalizedReading{Temperature: floatPtr(36.5)},
		ReceivedAt: time.Now(),
	})

	f := newTestFlusher(buffer, store, state, eval, emitter)
	f.Flush(context.Background())

	require.Len(t, store.batches, 1)
	assert.Nil(t, store.batches[0][0].UserID)
}

func TestFlusher_EmitsSensorUpdates(t *testing.T) {
	buffer := NewBuffer()
	store := &fakeReadingStore{}
	state := &fakeStateStore{}
	eval := &fakeEvaluator{}
	emitter := &fakeEmitter{}

	buffer.Put(Entry{DeviceID: "H1", Reading: &models.NormalizedReading{}, ReceivedAt: time.Now()})

	f := newTestFlusher(buffer, store, state, eval, emitter)
	f.Flush(context.Background())

	require.Len(t, emitter.events, 1)
	assert.Equal(t, models.EventSensorUpdate, emitter.events[0])
}
