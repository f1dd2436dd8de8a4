package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/twieo/internal/cqrs"
	"github.com/danghamo/twieo/internal/domain/run"
	"github.com/danghamo/twieo/internal/domain/shared"
	"github.com/danghamo/twieo/pkg/logger"
)

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

func testRecord() run.Record {
	return run.NewRecord(run.Stats{DistanceKm: 2, ElapsedSeconds: 720, PaceMinPerKm: 6, Calories: 130}, nil, t0)
}

func TestPersister_Submitted(t *testing.T) {
	submitter := &mockSubmitter{}
	queue := run.NewMemoryPendingQueue()
	publisher := &recordingPublisher{}
	record := testRecord()

	submitter.On("SubmitRun", mock.Anything, "jwt", record).Return(nil).Once()

	outcome, err := NewPersister(submitter, queue, StaticToken("jwt"), publisher, logger.NewNop()).
		Persist(context.Background(), "session-1", record)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)

	pending, _ := queue.List(context.Background())
	assert.Empty(t, pending)

	require.Len(t, publisher.events, 1)
	saved, ok := publisher.events[0].(*cqrs.RunSavedEvent)
	require.True(t, ok)
	assert.Equal(t, "session-1", saved.SessionID)
	assert.Equal(t, record.ID, saved.Record.ID)
	submitter.AssertExpectations(t)
}

func TestPersister_FailuresQueueExactlyOnce(t *testing.T) {
	tests := []struct {
		name      string
		tokens    TokenSource
		submitErr error
		submits   bool
		reason    string
	}{
		{"network error", StaticToken("jwt"), errors.New("connection refused"), true, "connection refused"},
		{"rejected", StaticToken("jwt"), shared.NewDomainError(shared.ErrCodeSubmissionFailed, "status 500"), true, "status 500"},
		{"logged out", StaticToken(""), nil, false, "login required"},
		{"token lookup failed", tokenFunc(func(context.Context) (string, error) { return "", errors.New("keychain locked") }), nil, false, "keychain locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := &mockSubmitter{}
			if tt.submits {
				submitter.On("SubmitRun", mock.Anything, mock.Anything, mock.Anything).Return(tt.submitErr).Once()
			}
			queue := run.NewMemoryPendingQueue()
			publisher := &recordingPublisher{}
			record := testRecord()

			outcome, err := NewPersister(submitter, queue, tt.tokens, publisher, logger.NewNop()).
				Persist(context.Background(), "s", record)
			require.NoError(t, err)
			assert.Equal(t, OutcomeQueuedOffline, outcome)

			pending, err := queue.List(context.Background())
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, record.ID, pending[0].ID)

			require.Len(t, publisher.events, 1)
			queued, ok := publisher.events[0].(*cqrs.RunQueuedEvent)
			require.True(t, ok)
			assert.Contains(t, queued.Reason, tt.reason)

			if tt.submits {
				submitter.AssertExpectations(t)
			} else {
				submitter.AssertNotCalled(t, "SubmitRun", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestPersister_QueueFailure(t *testing.T) {
	submitter := &mockSubmitter{}
	submitter.On("SubmitRun", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("offline"))
	publisher := &recordingPublisher{}

	outcome, err := NewPersister(submitter, failingQueue{}, StaticToken("jwt"), publisher, logger.NewNop()).
		Persist(context.Background(), "s", testRecord())
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrCodeQueueFailed))
	assert.Empty(t, outcome)
	assert.Empty(t, publisher.events)
}

func TestPersister_NoSubmitter(t *testing.T) {
	queue := run.NewMemoryPendingQueue()
	outcome, err := NewPersister(nil, queue, StaticToken("jwt"), nil, logger.NewNop()).
		Persist(context.Background(), "s", testRecord())
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueuedOffline, outcome)
}
