package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadiusKmForZoom(t *testing.T) {
	assert.Equal(t, 10000.0, RadiusKmForZoom(1))
	assert.Equal(t, 10.0, RadiusKmForZoom(11))
	assert.Equal(t, 0.020, RadiusKmForZoom(20))

	// Out-of-range zooms fall back to the default radius.
	assert.Equal(t, DefaultRadiusKm, RadiusKmForZoom(0))
	assert.Equal(t, DefaultRadiusKm, RadiusKmForZoom(21))
	assert.Equal(t, DefaultRadiusKm, RadiusKmForZoom(-3))
}

func TestNewBoundingBox(t *testing.T) {
	// 111 km is one degree of latitude.
	box := NewBoundingBox(0, 0, 111)
	assert.InDelta(t, -1.0, box.MinLat, 1e-9)
	assert.InDelta(t, 1.0, box.MaxLat, 1e-9)
	assert.InDelta(t, -1.0, box.MinLon, 1e-9)
	assert.InDelta(t, 1.0, box.MaxLon, 1e-9)
}

func TestNewBoundingBox_LongitudeWidensWithLatitude(t *testing.T) {
	equator := NewBoundingBox(0, 0, 10)
	seoul := NewBoundingBox(37.5665, 126.9780, 10)

	equatorWidth := equator.MaxLon - equator.MinLon
	seoulWidth := seoul.MaxLon - seoul.MinLon
	assert.Greater(t, seoulWidth, equatorWidth)

	// Latitude span is independent of where the box is.
	assert.InDelta(t, equator.MaxLat-equator.MinLat, seoul.MaxLat-seoul.MinLat, 1e-9)
}

func TestBoundingBox_Contains(t *testing.T) {
	box := NewBoundingBox(37.5665, 126.9780, 10)

	assert.True(t, box.Contains(37.5665, 126.9780))
	assert.True(t, box.Contains(37.60, 127.0))
	assert.False(t, box.Contains(35.1796, 129.0756)) // Busan
	assert.False(t, box.Contains(37.5665, 128.5))
}
