package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	// 0.002 degrees of longitude at the equator is about 222m.
	assert.InDelta(t, 222.6, DistanceMeters(0, 0, 0, 0.002), 1.0)
	// 0.0005 degrees is about 55m.
	assert.InDelta(t, 55.7, DistanceMeters(0, 0, 0, 0.0005), 0.5)
	assert.Zero(t, DistanceMeters(51.5, -0.12, 51.5, -0.12))
}

func TestWithinRadius(t *testing.T) {
	assert.True(t, WithinRadius(0, 0.0005, 0, 0, 100))
	assert.False(t, WithinRadius(0, 0.002, 0, 0, 100))
}
