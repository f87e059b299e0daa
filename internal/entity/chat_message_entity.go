package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one entry in a session's conversation log. Messages are
// embedded in their session (no separate table); insertion order is the
// conversation order and is preserved exactly.
type ChatMessage struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// IsStreaming is true only while an assistant message is actively being
	// extended. It flips to false exactly once, when the stream terminates.
	IsStreaming bool `json:"is_streaming,omitempty"`
}
