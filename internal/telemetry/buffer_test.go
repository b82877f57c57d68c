package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestBuffer_PutOverwritesByDevice(t *testing.T) {
	b := NewBuffer()

	b.Put(Entry{
		DeviceID:   "H1",
		Reading:    &models.NormalizedReading{Temperature: floatPtr(36.0)},
		ReceivedAt: time.Now(),
	})
	b.Put(Entry{
		DeviceID:   "H1",
		Reading:    &models.NormalizedReading{Temperature: floatPtr(39.0)},
		ReceivedAt: time.Now(),
	})

	assert.Equal(t, 1, b.Len())

	snapshot := b.SnapshotAndClear()
	require.Contains(t, snapshot, "H1")
	assert.Equal(t, 39.0, *snapshot["H1"].Reading.Temperature)
}

func TestBuffer_SnapshotAndClearEmpties(t *testing.T) {
	b := NewBuffer()
	b.Put(Entry{DeviceID: "H1", Reading: &models.NormalizedReading{}})
	b.Put(Entry{DeviceID: "H2", Reading: &models.NormalizedReading{}})

	snapshot := b.SnapshotAndClear()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 0, b.Len())

	// entries buffered after the snapshot belong to the next cycle
	b.Put(Entry{DeviceID: "H3", Reading: &models.NormalizedReading{}})
	next := b.SnapshotAndClear()
	assert.Len(t, next, 1)
	assert.Contains(t, next, "H3")
}

func TestBuffer_ConcurrentPutAndSnapshot(t *testing.T) {
	b := NewBuffer()

	var wg sync.WaitGroup
	collected := make(chan map[string]Entry, 64)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Put(Entry{
					DeviceID: fmt.Sprintf("H%d-%d", worker, j),
					Reading:  &models.NormalizedReading{},
				})
			}
		}(i)
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 16; j++ {
				collected <- b.SnapshotAndClear()
			}
		}()
	}

	wg.Wait()
	close(collected)

	// every device lands in exactly one snapshot
	seen := make(map[string]int)
	for snapshot := range collected {
		for id := range snapshot {
			seen[id]++
		}
	}
	for id := range b.SnapshotAndClear() {
		seen[id]++
	}

	assert.Len(t, seen, 800)
	for id, count := range seen {
		assert.Equal(t, 1, count, "device %s claimed by %d snapshots", id, count)
	}
}
