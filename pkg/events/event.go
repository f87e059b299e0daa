package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_TURN_COMMITTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Chat lifecycle events, consumed by the audit stream.

func NewTurnCommitted(sessionId, userId uuid.UUID, messageCount int) Event {
	return BaseEvent{
		Type: "CHAT_TURN_COMMITTED",
		Data: map[string]interface{}{
			"session_id":    sessionId.String(),
			"user_id":       userId.String(),
			"message_count": messageCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionCreated(sessionId, userId uuid.UUID) Event {
	return BaseEvent{
		Type: "CHAT_SESSION_CREATED",
		Data: map[string]interface{}{
			"session_id": sessionId.String(),
			"user_id":    userId.String(),
		},
		OccurredAt: time.Now(),
	}
}

func NewSessionDeleted(sessionId, userId uuid.UUID) Event {
	return BaseEvent{
		Type: "CHAT_SESSION_DELETED",
		Data: map[string]interface{}{
			"session_id": sessionId.String(),
			"user_id":    userId.String(),
		},
		OccurredAt: time.Now(),
	}
}
