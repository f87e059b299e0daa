package dto

import "github.com/google/uuid"

// TurnCommittedMessage rides the in-process bus after a turn's commit. The
// title consumer uses it to name sessions still carrying the default title.
type TurnCommittedMessage struct {
	ChatSessionId    uuid.UUID `json:"chat_session_id"`
	UserId           uuid.UUID `json:"user_id"`
	FirstUserMessage string    `json:"first_user_message"`
}
