package run

import (
	"math"
	"time"

	"github.com/danghamo/twieo/internal/domain/shared"
)

// Record is the immutable summary of a finished session. The JSON layout is
// the body of POST /api/runs.
type Record struct {
	ID              string              `json:"id"`
	DistanceKm      float64             `json:"distance"`
	DurationSeconds int                 `json:"duration"`
	PaceMinPerKm    float64             `json:"pace"`
	Calories        int                 `json:"calories"`
	Path            []shared.Coordinate `json:"route"`
	Date            time.Time           `json:"date"`
}

// NewRecord freezes stats and path into a record
func NewRecord(stats Stats, path []shared.Coordinate, date time.Time) Record {
	frozen := make([]shared.Coordinate, len(path))
	copy(frozen, path)

	return Record{
		ID:              shared.NewID().String(),
		DistanceKm:      stats.DistanceKm,
		DurationSeconds: stats.ElapsedSeconds,
		PaceMinPerKm:    stats.PaceMinPerKm,
		Calories:        int(math.Round(stats.Calories)),
		Path:            frozen,
		Date:            date,
	}
}
