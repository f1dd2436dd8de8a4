package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/twieo/internal/cqrs"
	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/pkg/logger"
)

// RunSubmitter delivers a finished run to the backend
type RunSubmitter interface {
	SubmitRun(ctx context.Context, token string, record run.Record) error
}

// TokenSource supplies the bearer credential at submission time
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential; the empty string means logged out
type StaticToken string

// Token returns the fixed credential
func (t StaticToken) Token(_ context.Context) (string, error) {
	return string(t), nil
}

// Outcome tells the user where the run ended up
type Outcome string

const (
	OutcomeSubmitted     Outcome = "submitted"
	OutcomeQueuedOffline Outcome = "queued_offline"
)

// Persister submits a record once and spools it on any failure
type Persister struct {
	submitter RunSubmitter
	queue     run.PendingQueue
	tokens    TokenSource
	publisher cqrs.EventPublisher
	now       func() time.Time
	logger    *logger.Logger
}

// NewPersister creates a persister. A nil queue keeps records in memory and
// a nil publisher drops events.
func NewPersister(
	submitter RunSubmitter,
	queue run.PendingQueue,
	tokens TokenSource,
	publisher cqrs.EventPublisher,
	logger *logger.Logger,
) *Persister {
	if publisher == nil {
		publisher = cqrs.NoopPublisher{}
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	if queue == nil {
		queue = run.NewMemoryPendingQueue()
	}
	return &Persister{
		submitter: submitter,
		queue:     queue,
		tokens:    tokens,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.WithComponent("run-persister"),
	}
}

// Persist tries the backend once. On failure the record is appended to the
// pending queue exactly once. If that append fails too, the error is
// returned and the caller still holds the record.
func (p *Persister) Persist(ctx context.Context, sessionID string, record run.Record) (Outcome, error) {
	log := p.logger.WithSessionID(sessionID)

	token, err := p.tokens.Token(ctx)
	if err == nil && token == "" {
		err = shared.ErrMissingCredential()
	}

	if err == nil && p.submitter != nil {
		err = p.submitter.SubmitRun(ctx, token, record)
		if err == nil {
			log.Info("Run saved", zap.String("run_id", record.ID))
			p.publish(ctx, &cqrs.RunSavedEvent{
				SessionID: sessionID,
				Record:    record,
				Timestamp: p.now(),
				EventID:   shared.NewID().String(),
			})
			return OutcomeSubmitted, nil
		}
	} else if err == nil {
		err = shared.NewDomainError(shared.ErrCodeSubmissionFailed, "no submitter configured")
	}

	log.Warn("Run submission failed, saving offline",
		zap.String("run_id", record.ID),
		zap.Error(err),
	)

	if qerr := p.queue.Append(ctx, record); qerr != nil {
		log.Error("Failed to queue run",
			zap.String("run_id", record.ID),
			zap.Error(qerr),
		)
		return "", qerr
	}

	p.publish(ctx, &cqrs.RunQueuedEvent{
		SessionID: sessionID,
		Record:    record,
		Reason:    err.Error(),
		Timestamp: p.now(),
		EventID:   shared.NewID().String(),
	})
	return OutcomeQueuedOffline, nil
}

func (p *Persister) publish(ctx context.Context, event any) {
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("Failed to publish persistence event", zap.Error(err))
	}
}
