package telemetry

import (
	"sync"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
)

// Entry the most recent reading for a device plus ingestion context
type Entry struct {
	DeviceID   string
	Reading    *models.NormalizedReading
	Source     string // "mqtt", "serial", "http"
	ReceivedAt time.Time
}

// Buffer per-device latest-value cache. Every ingestion call for a
// device overwrites its entry; intermediate samples between flushes are
// dropped on purpose to bound write volume.
type Buffer struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		entries: make(map[string]Entry),
	}
}

// Put stores the latest entry for a device, replacing any previous one.
func (b *Buffer) Put(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[entry.DeviceID] = entry
}

// SnapshotAndClear atomically takes ownership of all buffered entries
// and resets the buffer. Two overlapping flushes can never claim the
// same entry.
func (b *Buffer) SnapshotAndClear() map[string]Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.entries
	b.entries = make(map[string]Entry)
	return snapshot
}

// Len returns the number of buffered devices.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
