package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventTokenRefreshed EventType = "token_refreshed"
	EventRefreshDenied  EventType = "refresh_denied"
	EventTokenIssued    EventType = "token_issued"
)

// AllTypes lists every event type, for subscribers that want them all.
var AllTypes = []EventType{
	EventLoginSucceeded,
	EventLoginFailed,
	EventTokenRefreshed,
	EventRefreshDenied,
	EventTokenIssued,
}

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id,omitempty"`
	ActorID   int64       `json:"actor_id,omitempty"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, userID int64) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// DeniedPayload payload.
type DeniedPayload struct {
	Reason string `json:"reason"`
}
