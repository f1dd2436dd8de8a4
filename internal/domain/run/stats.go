package run

import (
	"github.com/danghamo/twieo/internal/domain/geo"
	"github.com/danghamo/twieo/internal/domain/shared"
)

// DefaultCaloriesPerKm is a flat linear estimate of energy per kilometre. It
// ignores body weight and speed on purpose; it is an approximation, not a
// physiological model.
const DefaultCaloriesPerKm = 65.0

// Stats is the live view of a session
type Stats struct {
	DistanceKm     float64 `json:"distance_km"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	PaceMinPerKm   float64 `json:"pace_min_per_km"`
	Calories       float64 `json:"calories"`
}

// Pace returns minutes per kilometre, or 0 when no distance was covered
func Pace(elapsedSeconds int, distanceKm float64) float64 {
	if distanceKm <= 0 {
		return 0
	}
	return (float64(elapsedSeconds) / 60) / distanceKm
}

// Accumulator integrates samples and timer ticks into Stats. It is not safe
// for concurrent use; the session serialises access.
type Accumulator struct {
	caloriesPerKm float64
	stats         Stats
	last          shared.Coordinate
	hasLast       bool
	path          []shared.Coordinate
}

// NewAccumulator creates an accumulator. A non-positive factor falls back to
// DefaultCaloriesPerKm.
func NewAccumulator(caloriesPerKm float64) *Accumulator {
	if caloriesPerKm <= 0 {
		caloriesPerKm = DefaultCaloriesPerKm
	}
	return &Accumulator{caloriesPerKm: caloriesPerKm, path: []shared.Coordinate{}}
}

// Reset zeroes stats, forgets the last sample and clears the path
func (a *Accumulator) Reset() {
	a.stats = Stats{}
	a.last = shared.Coordinate{}
	a.hasLast = false
	a.path = []shared.Coordinate{}
}

// Seed sets the reference point for the next increment without touching the
// path or the distance.
func (a *Accumulator) Seed(c shared.Coordinate) {
	a.last = c
	a.hasLast = true
}

// AddSample integrates one fix and returns the distance it contributed.
// The first fix without a predecessor only seeds. Fixes outside WGS84
// bounds, NaN included, are ignored and leave the reference point alone.
func (a *Accumulator) AddSample(s GeoSample) float64 {
	current := s.Coordinate()
	if !current.Valid() {
		return 0
	}

	increment := 0.0
	if a.hasLast {
		increment = geo.Distance(a.last, current)
		a.stats.DistanceKm += increment
		a.stats.PaceMinPerKm = Pace(a.stats.ElapsedSeconds, a.stats.DistanceKm)
		a.stats.Calories = a.stats.DistanceKm * a.caloriesPerKm
	}

	a.path = append(a.path, current)
	a.last = current
	a.hasLast = true

	return increment
}

// Tick advances elapsed time by one second and refreshes pace
func (a *Accumulator) Tick() {
	a.stats.ElapsedSeconds++
	a.stats.PaceMinPerKm = Pace(a.stats.ElapsedSeconds, a.stats.DistanceKm)
}

// Stats returns a snapshot
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Path returns a copy of the recorded coordinates
func (a *Accumulator) Path() []shared.Coordinate {
	out := make([]shared.Coordinate, len(a.path))
	copy(out, a.path)
	return out
}

// Last returns the current reference point, if any
func (a *Accumulator) Last() (shared.Coordinate, bool) {
	return a.last, a.hasLast
}
