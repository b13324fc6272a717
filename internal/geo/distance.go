package geo

import (
	"math"

	"fitsearch/internal/model"
)

// EarthRadiusKM is the mean Earth radius used by the haversine formula
const EarthRadiusKM = 6371.0088

// KMPerMile converts statute miles to kilometres
const KMPerMile = 1.609344

// DistanceKM returns the great-circle distance between a and b.
func DistanceKM(a, b model.Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h a hair above 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether point lies inside the circle, boundary included.
func WithinRadius(center model.Coordinate, radiusKM float64, point model.Coordinate) bool {
	return DistanceKM(center, point) <= radiusKM
}

// MilesToKM converts miles to kilometres.
func MilesToKM(miles float64) float64 {
	return miles * KMPerMile
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
