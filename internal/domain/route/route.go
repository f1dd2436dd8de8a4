package route

import (
	"context"
	"sync"

	"github.com/danghamo/twieo/internal/domain/shared"
)

// Point is one waypoint of a planned course
type Point = shared.Coordinate

// Source supplies the planned route for a session. An empty route is valid
// and disables turn guidance.
type Source interface {
	Route(ctx context.Context) ([]Point, error)
}

// StaticSource serves a fixed route
type StaticSource struct {
	points []Point
}

// NewStaticSource creates a source over a copy of points
func NewStaticSource(points []Point) *StaticSource {
	cp := make([]Point, len(points))
	copy(cp, points)
	return &StaticSource{points: cp}
}

// Route returns the fixed route
func (s *StaticSource) Route(_ context.Context) ([]Point, error) {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out, nil
}

// Preference biases course generation
type Preference string

const (
	PreferenceNone   Preference = "none"
	PreferenceScenic Preference = "scenic"
	PreferenceQuiet  Preference = "quiet"
)

// CourseRequest asks the server for loop courses around a start point
type CourseRequest struct {
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	DistanceKm float64    `json:"distance"`
	Preference Preference `json:"preference"`
}

// Validate checks the request before it goes on the wire
func (r CourseRequest) Validate() error {
	if !shared.NewCoordinate(r.Lat, r.Lon).Valid() {
		return shared.ErrInvalidInput("course start is not a valid coordinate")
	}
	if r.DistanceKm <= 0 {
		return shared.ErrInvalidInput("course distance must be positive")
	}
	switch r.Preference {
	case "", PreferenceNone, PreferenceScenic, PreferenceQuiet:
		return nil
	default:
		return shared.NewDomainErrorf(shared.ErrCodeInvalidInput, "unknown course preference %q", r.Preference)
	}
}

// CourseFeatures summarises a generated course
type CourseFeatures struct {
	Points        int     `json:"points"`
	EstimatedTime float64 `json:"estimated_time"`
}

// Course is one generated alternative
type Course struct {
	ID       string         `json:"id"`
	Route    []Point        `json:"route"`
	Features CourseFeatures `json:"features"`
}

// CourseGenerator produces course alternatives; the API client implements it
type CourseGenerator interface {
	GenerateCourse(ctx context.Context, req CourseRequest) ([]Course, error)
}

// CourseSource asks a generator for courses once and serves the selected one
type CourseSource struct {
	generator CourseGenerator
	request   CourseRequest
	selected  int

	mu      sync.Mutex
	courses []Course
}

// NewCourseSource creates a source that picks alternative number selected
func NewCourseSource(generator CourseGenerator, req CourseRequest, selected int) *CourseSource {
	return &CourseSource{generator: generator, request: req, selected: selected}
}

// Courses returns every alternative, generating them on first use
func (s *CourseSource) Courses(ctx context.Context) ([]Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.courses != nil {
		return s.courses, nil
	}

	if err := s.request.Validate(); err != nil {
		return nil, err
	}

	courses, err := s.generator.GenerateCourse(ctx, s.request)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, shared.NewDomainError(shared.ErrCodeNoCourse, "no course could be generated")
	}

	s.courses = courses
	return courses, nil
}

// Route returns the selected course's waypoints. An out-of-range selection
// yields an empty route rather than an error.
func (s *CourseSource) Route(ctx context.Context) ([]Point, error) {
	courses, err := s.Courses(ctx)
	if err != nil {
		return nil, err
	}
	if s.selected < 0 || s.selected >= len(courses) {
		return []Point{}, nil
	}
	return courses[s.selected].Route, nil
}
