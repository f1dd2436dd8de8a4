package cqrs

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danghamo/twieo/pkg/logger"
)

func TestLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewLoggerAdapter(logger.FromZap(zap.New(core)))

	adapter.Info("router started", watermill.LogFields{"handlers": 2})
	adapter.With(watermill.LogFields{"topic": "run-events.X"}).Debug("subscribed", nil)
	adapter.Trace("message received", nil)
	adapter.Error("handler failed", errors.New("boom"), watermill.LogFields{"handler": "h"})

	entries := logs.AllUntimed()
	assert.Len(t, entries, 4)

	assert.Equal(t, "router started", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["handlers"])

	assert.Equal(t, "run-events.X", entries[1].ContextMap()["topic"])
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)

	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}
