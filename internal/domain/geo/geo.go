// Package geo contains pure spherical geometry helpers used by the tracker.
package geo

import (
	"math"

	"github.com/danghamo/twieo/internal/domain/shared"
)

// EarthRadiusKm is the mean Earth radius used for every great-circle computation.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a just past 1 for near-antipodal pairs
	a = math.Min(math.Max(a, 0), 1)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is HaversineKm over coordinates.
func Distance(from, to shared.Coordinate) float64 {
	return HaversineKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

// Bearing returns the initial forward azimuth from one coordinate to another,
// normalised to [0, 360).
func Bearing(from, to shared.Coordinate) float64 {
	lat1 := degreesToRadians(from.Latitude)
	lat2 := degreesToRadians(to.Latitude)
	dLon := degreesToRadians(to.Longitude - from.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	return normalizeDegrees(radiansToDegrees(math.Atan2(y, x)))
}

// TurnAngle returns the signed change of heading going from bearing1 to
// bearing2, in (-180, 180]. Positive is a right (clockwise) turn.
func TurnAngle(bearing1, bearing2 float64) float64 {
	angle := math.Mod(bearing2-bearing1+360, 360)
	if angle < 0 {
		angle += 360
	}
	if angle > 180 {
		angle -= 360
	}
	return angle
}

// PathLength sums consecutive great-circle distances along a path.
func PathLength(path []shared.Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
