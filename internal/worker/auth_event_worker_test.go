package worker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/crm-gateway/internal/events"
	"github.com/spec-kit/crm-gateway/internal/worker"
)

func TestAuthEventWorker(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuthEventWorker(dispatcher, zap.New(core))

	for _, eventType := range events.AllTypes {
		require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(eventType, 7)))
	}

	require.Equal(t, len(events.AllTypes), logs.Len())
	entry := logs.FilterMessage(string(events.EventRefreshDenied)).All()
	require.Len(t, entry, 1)
	require.Equal(t, "auth_events", entry[0].LoggerName)
	require.EqualValues(t, 7, entry[0].ContextMap()["user_id"])
}

func TestAuthEventWorker_NilDispatcher(t *testing.T) {
	worker.StartAuthEventWorker(nil, zap.NewNop())
}
