package cqrs

import (
	"encoding/json"
	"time"

	"github.com/danghamo/twieo/internal/domain/guidance"
	"github.com/danghamo/twieo/internal/domain/run"
)

// RunStartedEvent is published when a session enters Running from Idle
type RunStartedEvent struct {
	SessionID   string    `json:"session_id"`
	Locale      string    `json:"locale"`
	RoutePoints int       `json:"route_points"`
	Timestamp   time.Time `json:"timestamp"`
	EventID     string    `json:"event_id"`
}

// RunPausedEvent carries the frozen stats at pause
type RunPausedEvent struct {
	SessionID string    `json:"session_id"`
	Stats     run.Stats `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
}

// RunResumedEvent is published when a paused session runs again
type RunResumedEvent struct {
	SessionID string    `json:"session_id"`
	Stats     run.Stats `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
}

// RunStatsUpdatedEvent carries the full stats and a merge patch against the
// previously published stats
type RunStatsUpdatedEvent struct {
	SessionID string          `json:"session_id"`
	Stats     run.Stats       `json:"stats"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	EventID   string          `json:"event_id"`
}

// AnnouncementEvent mirrors every spoken cue
type AnnouncementEvent struct {
	SessionID    string                `json:"session_id"`
	Announcement guidance.Announcement `json:"announcement"`
	Timestamp    time.Time             `json:"timestamp"`
	EventID      string                `json:"event_id"`
}

// RunStoppedEvent is published once the producers are torn down on stop
type RunStoppedEvent struct {
	SessionID string    `json:"session_id"`
	Stats     run.Stats `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
}

// RunSavedEvent reports a record accepted by the backend
type RunSavedEvent struct {
	SessionID string     `json:"session_id"`
	Record    run.Record `json:"record"`
	Timestamp time.Time  `json:"timestamp"`
	EventID   string     `json:"event_id"`
}

// RunQueuedEvent reports a record spooled to the pending queue
type RunQueuedEvent struct {
	SessionID string     `json:"session_id"`
	Record    run.Record `json:"record"`
	Reason    string     `json:"reason"`
	Timestamp time.Time  `json:"timestamp"`
	EventID   string     `json:"event_id"`
}
