package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// ID represents a unique identifier
type ID string

// NewID generates a new unique ID
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string representation of ID
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if ID is empty
func (id ID) IsEmpty() bool {
	return string(id) == ""
}

// Coordinate is a WGS84 position in decimal degrees. The JSON names match
// what the mobile client and the course generator exchange.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate creates a new coordinate
func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lon}
}

// Valid reports whether the coordinate lies within WGS84 bounds
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// String returns string representation of the coordinate
func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", c.Latitude, c.Longitude)
}
