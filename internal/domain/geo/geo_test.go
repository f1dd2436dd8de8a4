package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/twieo/internal/domain/shared"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		wantKm    float64
		tolerance float64
	}{
		{
			name: "same point",
			lat1: 37.5665, lon1: 126.9780,
			lat2: 37.5665, lon2: 126.9780,
			wantKm:    0,
			tolerance: 0,
		},
		{
			name: "Seoul City Hall short hop",
			lat1: 37.5665, lon1: 126.9780,
			lat2: 37.5675, lon2: 126.9790,
			wantKm:    0.1420,
			tolerance: 0.0015,
		},
		{
			name: "one degree of latitude",
			lat1: 0, lon1: 0,
			lat2: 1, lon2: 0,
			wantKm:    111.195,
			tolerance: 0.01,
		},
		{
			name: "New York to Los Angeles (~3944km)",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 34.0522, lon2: -118.2437,
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.wantKm, got, tt.tolerance)
		})
	}
}

func TestHaversineKm_IdenticalPointsAreZero(t *testing.T) {
	points := []shared.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9999, Longitude: -179.9999},
		{Latitude: 37.5665, Longitude: 126.9780},
	}
	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p, p), p.String())
	}
}

func TestHaversineKm_AntipodalPairsStayFinite(t *testing.T) {
	halfCircumference := math.Pi * EarthRadiusKm
	for lat := -89.0; lat <= 89.0; lat += 0.37 {
		for lon := -179.0; lon <= 0; lon += 0.53 {
			d := HaversineKm(lat, lon, -lat, lon+180)
			require.False(t, math.IsNaN(d), "antipode of (%v, %v)", lat, lon)
			assert.InDelta(t, halfCircumference, d, 1e-3)
		}
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	d1 := HaversineKm(25.0, 121.0, 26.0, 122.0)
	d2 := HaversineKm(26.0, 122.0, 25.0, 121.0)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestBearing_CardinalDirections(t *testing.T) {
	origin := shared.NewCoordinate(0, 0)

	assert.InDelta(t, 0, Bearing(origin, shared.NewCoordinate(1, 0)), 1e-9)
	assert.InDelta(t, 90, Bearing(origin, shared.NewCoordinate(0, 1)), 1e-9)
	assert.InDelta(t, 180, Bearing(origin, shared.NewCoordinate(-1, 0)), 1e-9)
	assert.InDelta(t, 270, Bearing(origin, shared.NewCoordinate(0, -1)), 1e-9)
}

func TestBearing_Range(t *testing.T) {
	from := shared.NewCoordinate(37.5665, 126.9780)
	for _, to := range []shared.Coordinate{
		{Latitude: 37.57, Longitude: 126.97},
		{Latitude: 37.56, Longitude: 126.99},
		{Latitude: 37.56, Longitude: 126.96},
	} {
		b := Bearing(from, to)
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
	}
}

func TestTurnAngle(t *testing.T) {
	tests := []struct {
		name     string
		b1, b2   float64
		expected float64
	}{
		{"straight", 10, 10, 0},
		{"right", 0, 90, 90},
		{"left", 90, 0, -90},
		{"right across north", 350, 30, 40},
		{"left across north", 30, 350, -40},
		{"u-turn is positive 180", 0, 180, 180},
		{"just past u-turn is left", 0, 181, -179},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TurnAngle(tt.b1, tt.b2)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.Greater(t, got, -180.0)
			assert.LessOrEqual(t, got, 180.0)
		})
	}
}

func TestPathLength(t *testing.T) {
	path := []shared.Coordinate{
		{Latitude: 37.5665, Longitude: 126.9780},
		{Latitude: 37.5675, Longitude: 126.9790},
		{Latitude: 37.5685, Longitude: 126.9790},
	}
	want := Distance(path[0], path[1]) + Distance(path[1], path[2])
	assert.InDelta(t, want, PathLength(path), 1e-12)
	assert.Equal(t, 0.0, PathLength(path[:1]))
	assert.Equal(t, 0.0, PathLength(nil))
	assert.False(t, math.IsNaN(PathLength(path)))
}
