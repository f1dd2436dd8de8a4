// Package guidance turns distance progress and position along a planned
// route into spoken cues.
package guidance

import (
	"math"

	"github.com/danghamo/twieo/internal/domain/geo"
	"github.com/danghamo/twieo/internal/domain/shared"
)

const (
	// DefaultWaypointRadiusKm is how close a runner must get before a
	// waypoint counts as reached.
	DefaultWaypointRadiusKm = 0.03
	// DefaultTurnAngleDeg is the heading change beyond which a turn is announced.
	DefaultTurnAngleDeg = 45.0
)

// Kind classifies an announcement
type Kind string

const (
	KindIntro     Kind = "intro"
	KindKilometer Kind = "kilometer"
	KindTurnRight Kind = "turn_right"
	KindTurnLeft  Kind = "turn_left"
	KindFinish    Kind = "finish"
)

// Announcement is a cue ready for a speech sink
type Announcement struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	Locale   string `json:"locale"`
	Km       int    `json:"km,omitempty"`
	PaceMin  int    `json:"pace_min,omitempty"`
	PaceSec  int    `json:"pace_sec,omitempty"`
	Waypoint int    `json:"waypoint,omitempty"`
}

// Config holds the tunable thresholds
type Config struct {
	WaypointRadiusKm float64
	TurnAngleDeg     float64
	Locale           string
}

// DefaultConfig returns the thresholds the app ships with
func DefaultConfig() Config {
	return Config{
		WaypointRadiusKm: DefaultWaypointRadiusKm,
		TurnAngleDeg:     DefaultTurnAngleDeg,
		Locale:           DefaultLocale,
	}
}

// Cursor tracks guidance progress within a session
type Cursor struct {
	LastAnnouncedKm   int `json:"last_announced_km"`
	NextWaypointIndex int `json:"next_waypoint_index"`
}

// Engine evaluates progress and produces announcements. Not safe for
// concurrent use.
type Engine struct {
	cfg     Config
	phrases Phrasebook
	route   []shared.Coordinate
	cursor  Cursor
}

// NewEngine creates an engine. Non-positive thresholds take their defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.WaypointRadiusKm <= 0 {
		cfg.WaypointRadiusKm = DefaultWaypointRadiusKm
	}
	if cfg.TurnAngleDeg <= 0 {
		cfg.TurnAngleDeg = DefaultTurnAngleDeg
	}
	phrases := PhrasebookFor(cfg.Locale)
	cfg.Locale = phrases.Locale

	return &Engine{cfg: cfg, phrases: phrases}
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// SetRoute replaces the planned route and rewinds the waypoint cursor.
// An empty route disables turn guidance.
func (e *Engine) SetRoute(route []shared.Coordinate) {
	e.route = make([]shared.Coordinate, len(route))
	copy(e.route, route)
	e.cursor.NextWaypointIndex = 0
}

// Route returns the current planned route
func (e *Engine) Route() []shared.Coordinate {
	out := make([]shared.Coordinate, len(e.route))
	copy(out, e.route)
	return out
}

// Reset clears the cursor for a new session; the route is kept
func (e *Engine) Reset() {
	e.cursor = Cursor{}
}

// Cursor returns the current cursor
func (e *Engine) Cursor() Cursor {
	return e.cursor
}

// Intro is spoken when a session starts
func (e *Engine) Intro() Announcement {
	return Announcement{Kind: KindIntro, Text: e.phrases.Intro, Locale: e.cfg.Locale}
}

// Finish is spoken when a session is saved
func (e *Engine) Finish() Announcement {
	return Announcement{Kind: KindFinish, Text: e.phrases.Finish, Locale: e.cfg.Locale}
}

// Evaluate is called after every distance update with the cumulative
// distance, the current pace and the newest position.
func (e *Engine) Evaluate(distanceKm, paceMinPerKm float64, position shared.Coordinate) []Announcement {
	var out []Announcement
	out = append(out, e.kilometerCallouts(distanceKm, paceMinPerKm)...)
	if turn, ok := e.turnCallout(position); ok {
		out = append(out, turn)
	}
	return out
}

func (e *Engine) kilometerCallouts(distanceKm, paceMinPerKm float64) []Announcement {
	currentKm := int(math.Floor(distanceKm))
	if currentKm <= e.cursor.LastAnnouncedKm {
		return nil
	}

	paceMin, paceSec := SplitPace(paceMinPerKm)

	out := make([]Announcement, 0, currentKm-e.cursor.LastAnnouncedKm)
	for km := e.cursor.LastAnnouncedKm + 1; km <= currentKm; km++ {
		out = append(out, Announcement{
			Kind:    KindKilometer,
			Text:    e.phrases.Kilometer(km, paceMin, paceSec),
			Locale:  e.cfg.Locale,
			Km:      km,
			PaceMin: paceMin,
			PaceSec: paceSec,
		})
	}
	e.cursor.LastAnnouncedKm = currentKm
	return out
}

func (e *Engine) turnCallout(position shared.Coordinate) (Announcement, bool) {
	idx := e.cursor.NextWaypointIndex
	if len(e.route) == 0 || idx+1 >= len(e.route) {
		return Announcement{}, false
	}

	next := e.route[idx+1]
	if geo.Distance(position, next) >= e.cfg.WaypointRadiusKm {
		return Announcement{}, false
	}

	// waypoint reached: consume it whether or not a turn follows
	e.cursor.NextWaypointIndex++

	if idx+2 >= len(e.route) {
		return Announcement{}, false
	}

	after := e.route[idx+2]
	angle := geo.TurnAngle(geo.Bearing(position, next), geo.Bearing(next, after))

	switch classifyTurn(angle, e.cfg.TurnAngleDeg) {
	case KindTurnRight:
		return Announcement{Kind: KindTurnRight, Text: e.phrases.RightTurn, Locale: e.cfg.Locale, Waypoint: idx + 1}, true
	case KindTurnLeft:
		return Announcement{Kind: KindTurnLeft, Text: e.phrases.LeftTurn, Locale: e.cfg.Locale, Waypoint: idx + 1}, true
	default:
		return Announcement{}, false
	}
}

// classifyTurn maps a signed turn angle to a turn kind. Angles within
// [-threshold, threshold] are not turns and yield "".
func classifyTurn(angle, threshold float64) Kind {
	switch {
	case angle > threshold:
		return KindTurnRight
	case angle < -threshold:
		return KindTurnLeft
	default:
		return ""
	}
}

// SplitPace splits min/km into whole minutes and rounded seconds, carrying
// 60 seconds into the next minute.
func SplitPace(paceMinPerKm float64) (int, int) {
	if paceMinPerKm <= 0 || math.IsNaN(paceMinPerKm) || math.IsInf(paceMinPerKm, 0) {
		return 0, 0
	}
	minutes := math.Floor(paceMinPerKm)
	seconds := int(math.Round((paceMinPerKm - minutes) * 60))
	if seconds == 60 {
		return int(minutes) + 1, 0
	}
	return int(minutes), seconds
}
