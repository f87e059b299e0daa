package contract

import (
	"context"

	"chatgpt-clone-be/internal/entity"
	"chatgpt-clone-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ChatSessionRepository is the durable per-user store of chat sessions. Every
// mutating operation is a single atomic statement scoped by (id, user_id);
// an ownership mismatch is reported as NotFound, never as the row.
type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	Exists(ctx context.Context, id, userId uuid.UUID) (bool, error)
	ReplaceMessages(ctx context.Context, id, userId uuid.UUID, messages []entity.ChatMessage) error
	Rename(ctx context.Context, id, userId uuid.UUID, title string) error
	Delete(ctx context.Context, id, userId uuid.UUID) error
}
