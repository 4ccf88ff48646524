/*
Package geo provides great-circle distance computation and display formatting
for the geospatial discovery features.
*/
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// coordinate pairs, using the haversine formula. It is pure and deterministic;
// NaN inputs propagate to a NaN result, and callers are expected to validate
// coordinates beforehand.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*
			math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// FormatDistance renders a distance for display: a fixed sentinel under 100 m,
// whole meters under one kilometer, otherwise kilometers with one decimal.
func FormatDistance(distanceKm float64) string {
	if distanceKm < 0.1 {
		return "< 0.1 km"
	}
	if distanceKm < 1 {
		meters := math.Round(distanceKm * 1000)
		return fmt.Sprintf("%d m", int(meters))
	}
	return fmt.Sprintf("%.1f km", distanceKm)
}

// ValidCoordinate reports whether the pair is a finite, in-range
// latitude/longitude.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
