package run

import (
	"time"

	"github.com/danghamo/twieo/internal/domain/shared"
)

// GeoSample is one fix delivered by the location provider
type GeoSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// NewGeoSample creates a sample
func NewGeoSample(lat, lon float64, ts time.Time) GeoSample {
	return GeoSample{Latitude: lat, Longitude: lon, Timestamp: ts}
}

// Coordinate drops the timestamp
func (s GeoSample) Coordinate() shared.Coordinate {
	return shared.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude}
}
