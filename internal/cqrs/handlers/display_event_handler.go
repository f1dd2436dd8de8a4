package handlers

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"go.uber.org/zap"

	"github.com/danghamo/twieo/internal/api/jsonrpcx"
	cqrsevents "github.com/danghamo/twieo/internal/cqrs"
	"github.com/danghamo/twieo/pkg/logger"
)

// Notification methods sent to the display
const (
	MethodRunStarted   = "run.started"
	MethodRunPaused    = "run.paused"
	MethodRunResumed   = "run.resumed"
	MethodStatsUpdated = "run.stats.updated"
	MethodAnnouncement = "run.announcement"
	MethodRunStopped   = "run.stopped"
	MethodRunSaved     = "run.saved"
	MethodRunQueued    = "run.saved_offline"
)

// Display receives notifications for rendering
type Display interface {
	Notify(notification jsonrpcx.JsonRpcNotification) error
}

// DisplayEventHandler turns session events into display notifications
type DisplayEventHandler struct {
	display Display
	logger  *logger.Logger
}

// NewDisplayEventHandler creates a new display event handler
func NewDisplayEventHandler(display Display, logger *logger.Logger) *DisplayEventHandler {
	return &DisplayEventHandler{
		display: display,
		logger:  logger.WithComponent("display-event-handler"),
	}
}

// EventHandlers lists every handler for registration on a processor
func (h *DisplayEventHandler) EventHandlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		cqrs.NewEventHandler("DisplayRunStarted", h.HandleRunStartedEvent),
		cqrs.NewEventHandler("DisplayRunPaused", h.HandleRunPausedEvent),
		cqrs.NewEventHandler("DisplayRunResumed", h.HandleRunResumedEvent),
		cqrs.NewEventHandler("DisplayStatsUpdated", h.HandleRunStatsUpdatedEvent),
		cqrs.NewEventHandler("DisplayAnnouncement", h.HandleAnnouncementEvent),
		cqrs.NewEventHandler("DisplayRunStopped", h.HandleRunStoppedEvent),
		cqrs.NewEventHandler("DisplayRunSaved", h.HandleRunSavedEvent),
		cqrs.NewEventHandler("DisplayRunQueued", h.HandleRunQueuedEvent),
	}
}

// HandleRunStartedEvent handles RunStartedEvent
func (h *DisplayEventHandler) HandleRunStartedEvent(ctx context.Context, event *cqrsevents.RunStartedEvent) error {
	return h.notify(MethodRunStarted, event.SessionID, map[string]any{
		"session_id":   event.SessionID,
		"locale":       event.Locale,
		"route_points": event.RoutePoints,
		"timestamp":    event.Timestamp.Format(time.RFC3339),
	})
}

// HandleRunPausedEvent handles RunPausedEvent
func (h *DisplayEventHandler) HandleRunPausedEvent(ctx context.Context, event *cqrsevents.RunPausedEvent) error {
	return h.notify(MethodRunPaused, event.SessionID, map[string]any{
		"session_id": event.SessionID,
		"stats":      event.Stats,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	})
}

// HandleRunResumedEvent handles RunResumedEvent
func (h *DisplayEventHandler) HandleRunResumedEvent(ctx context.Context, event *cqrsevents.RunResumedEvent) error {
	return h.notify(MethodRunResumed, event.SessionID, map[string]any{
		"session_id": event.SessionID,
		"stats":      event.Stats,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	})
}

// HandleRunStatsUpdatedEvent sends only the changed fields
func (h *DisplayEventHandler) HandleRunStatsUpdatedEvent(ctx context.Context, event *cqrsevents.RunStatsUpdatedEvent) error {
	params := map[string]any{
		"session_id": event.SessionID,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	}
	if len(event.Changes) > 0 {
		params["changes"] = event.Changes
	} else {
		params["stats"] = event.Stats
	}
	return h.notify(MethodStatsUpdated, event.SessionID, params)
}

// HandleAnnouncementEvent handles AnnouncementEvent
func (h *DisplayEventHandler) HandleAnnouncementEvent(ctx context.Context, event *cqrsevents.AnnouncementEvent) error {
	return h.notify(MethodAnnouncement, event.SessionID, map[string]any{
		"session_id": event.SessionID,
		"kind":       event.Announcement.Kind,
		"text":       event.Announcement.Text,
		"locale":     event.Announcement.Locale,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	})
}

// HandleRunStoppedEvent handles RunStoppedEvent
func (h *DisplayEventHandler) HandleRunStoppedEvent(ctx context.Context, event *cqrsevents.RunStoppedEvent) error {
	return h.notify(MethodRunStopped, event.SessionID, map[string]any{
		"session_id": event.SessionID,
		"stats":      event.Stats,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	})
}

// HandleRunSavedEvent handles RunSavedEvent
func (h *DisplayEventHandler) HandleRunSavedEvent(ctx context.Context, event *cqrsevents.RunSavedEvent) error {
	return h.notify(MethodRunSaved, event.SessionID, map[string]any{
		"session_id": event.SessionID,
		"run_id":     event.Record.ID,
		"distance":   event.Record.DistanceKm,
		"duration":   event.Record.DurationSeconds,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	})
}

// HandleRunQueuedEvent tells the user the run was saved offline
func (h *DisplayEventHandler) HandleRunQueuedEvent(ctx context.Context, event *cqrsevents.RunQueuedEvent) error {
	return h.notify(MethodRunQueued, event.SessionID, map[string]any{
		"session_id": event.SessionID,
		"run_id":     event.Record.ID,
		"reason":     event.Reason,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	})
}

func (h *DisplayEventHandler) notify(method, sessionID string, params map[string]any) error {
	if err := h.display.Notify(jsonrpcx.NewNotification(method, params)); err != nil {
		// a broken display must not block the bus; log and ack
		h.logger.Warn("Failed to notify display",
			zap.String("method", method),
			zap.String("sessionId", sessionID),
			zap.Error(err))
		return nil
	}

	h.logger.Debug("Display notified",
		zap.String("method", method),
		zap.String("sessionId", sessionID))
	return nil
}
