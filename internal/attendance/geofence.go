package attendance

import "math"

const earthRadiusM = 6371000.0

// DistanceMeters returns the great-circle distance in meters between
// two coordinates, using the haversine formula.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinRadius reports whether (lat, lng) lies inside a circular
// geofence centered at (centerLat, centerLng).
func WithinRadius(lat, lng, centerLat, centerLng, radiusM float64) bool {
	return DistanceMeters(lat, lng, centerLat, centerLng) <= radiusM
}
