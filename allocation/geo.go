// Package allocation decides which promotional items a viewer sees and in what
// order, and ranks businesses for directory listings.
package allocation

import (
	"math"

	"github.com/dulcemap/dulcemap-api/models"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two WGS84 points.
// Out-of-range coordinates are not validated.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// distanceBetween reports the distance between two optional points; ok is false
// when either side is unknown.
func distanceBetween(a, b *models.GeoPoint) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return DistanceMeters(a.Lat, a.Lng, b.Lat, b.Lng), true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
