package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"chatgpt-clone-be/internal/entity"
	"chatgpt-clone-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) (*entity.ChatSession, error) {
	if s == nil {
		return nil, nil
	}

	messages, err := m.MessagesToEntities(s.Messages)
	if err != nil {
		return nil, err
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		Messages:  messages,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) (*model.ChatSession, error) {
	if s == nil {
		return nil, nil
	}

	raw, err := m.MessagesToJSON(s.Messages)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		Messages:  raw,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}, nil
}

// MessagesToJSON serializes a message log for the jsonb column. A nil log
// serializes as an empty array, never as JSON null.
func (m *ChatMapper) MessagesToJSON(messages []entity.ChatMessage) ([]byte, error) {
	if messages == nil {
		messages = []entity.ChatMessage{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}
	return raw, nil
}

func (m *ChatMapper) MessagesToEntities(raw []byte) ([]entity.ChatMessage, error) {
	if len(raw) == 0 {
		return []entity.ChatMessage{}, nil
	}
	var messages []entity.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	if messages == nil {
		messages = []entity.ChatMessage{}
	}
	return messages, nil
}
