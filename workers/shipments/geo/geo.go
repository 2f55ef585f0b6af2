// Package geo measures distances and headings on the WGS84 ellipsoid.
package geo

import (
	"math"

	"github.com/tidwall/geodesic"

	"parcel-mileage-service/workers/shipments/models"
)

const (
	MetersPerMile = 1609.34
)

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Distance returns the geodesic distance between a and b in miles.
func Distance(a, b models.Coordinate) float64 {
	var meters float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &meters, nil, nil)
	return meters / MetersPerMile
}

// Bearing returns the initial heading from a to b in degrees, [0, 360).
func Bearing(a, b models.Coordinate) float64 {
	var azimuth float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, nil, &azimuth, nil)
	return math.Mod(azimuth+360, 360)
}

// Compass maps a bearing to one of eight compass points.
func Compass(bearing float64) string {
	b := math.Mod(math.Mod(bearing, 360)+360, 360)
	idx := int(math.Floor((b+22.5)/45)) % len(compassPoints)
	return compassPoints[idx]
}
