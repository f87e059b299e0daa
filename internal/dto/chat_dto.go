package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	// Id lets the client pre-generate the session id for optimistic
	// navigation. When present it is used verbatim; a collision is a 409.
	Id    *uuid.UUID `json:"id,omitempty"`
	Title string     `json:"title,omitempty"`
}

type CreateSessionResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id          uuid.UUID `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	IsStreaming bool      `json:"is_streaming,omitempty"`
}

type SendChatRequest struct {
	// ChatSessionId absent means "create a new session for this turn".
	ChatSessionId *uuid.UUID `json:"chat_session_id,omitempty"`
	Chat          string     `json:"chat" validate:"required"`
}

type RenameSessionRequest struct {
	Title string `json:"title" validate:"required"`
}
