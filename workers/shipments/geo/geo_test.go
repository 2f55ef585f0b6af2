package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"parcel-mileage-service/workers/shipments/models"
)

var (
	atlanta = models.Coordinate{Lat: 33.7490, Lon: -84.3880}
	dallas  = models.Coordinate{Lat: 32.7767, Lon: -96.7970}
	lax     = models.Coordinate{Lat: 33.9425, Lon: -118.4081}
	jfk     = models.Coordinate{Lat: 40.6398, Lon: -73.7789}
)

func TestDistance(t *testing.T) {
	assert.InDelta(t, 2475, Distance(lax, jfk), 10)
	assert.InDelta(t, 720, Distance(atlanta, dallas), 10)
	assert.Zero(t, Distance(atlanta, atlanta))
	assert.InDelta(t, Distance(atlanta, dallas), Distance(dallas, atlanta), 1e-6)
}

func TestBearing(t *testing.T) {
	assert.Equal(t, "W", Compass(Bearing(atlanta, dallas)))
	assert.Equal(t, "E", Compass(Bearing(dallas, atlanta)))
	north := models.Coordinate{Lat: atlanta.Lat + 1, Lon: atlanta.Lon}
	assert.InDelta(t, 0, Bearing(atlanta, north), 0.01)
}

func TestCompass(t *testing.T) {
	tests := []struct {
		bearing  float64
		expected string
	}{
		{0, "N"},
		{22.4, "N"},
		{22.5, "NE"},
		{90, "E"},
		{180, "S"},
		{225, "SW"},
		{270, "W"},
		{337.5, "N"},
		{359.9, "N"},
		{-90, "W"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Compass(tt.bearing), "bearing %v", tt.bearing)
	}
}
