package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-gateway/internal/events"
)

// StartAuthEventWorker subscribes a structured log sink to every
// authentication event.
func StartAuthEventWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	sink := logger.Named("auth_events")
	for _, eventType := range events.AllTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			sink.Info(string(event.Type),
				zap.String("event_id", event.ID),
				zap.Int64("user_id", event.UserID),
				zap.Int64("actor_id", event.ActorID),
				zap.String("email", event.Email),
				zap.Time("timestamp", event.Timestamp),
				zap.Any("payload", event.Payload),
			)
			return nil
		})
	}
}
