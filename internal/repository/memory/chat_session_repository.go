package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatgpt-clone-be/internal/apperror"
	"chatgpt-clone-be/internal/entity"
	"chatgpt-clone-be/internal/repository/contract"
	"chatgpt-clone-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ChatSessionRepository is an in-memory implementation of the session store,
// used by unit tests and as a fallback when no database is configured. It
// interprets the subset of specifications the chat service actually issues
// (ByID, UserOwnedBy, OrderBy, SelectSummary).
type ChatSessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entity.ChatSession
}

func NewChatSessionRepository() *ChatSessionRepository {
	return &ChatSessionRepository{
		sessions: make(map[uuid.UUID]*entity.ChatSession),
	}
}

var _ contract.ChatSessionRepository = (*ChatSessionRepository)(nil)

func cloneSession(s *entity.ChatSession) *entity.ChatSession {
	c := *s
	c.Messages = append([]entity.ChatMessage(nil), s.Messages...)
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

type specFilter struct {
	byID        *uuid.UUID
	ownedBy     *uuid.UUID
	orderField  string
	orderDesc   bool
	summaryOnly bool
}

func parseSpecs(specs []specification.Specification) specFilter {
	var f specFilter
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByID:
			id := v.ID
			f.byID = &id
		case specification.UserOwnedBy:
			id := v.UserID
			f.ownedBy = &id
		case specification.OrderBy:
			f.orderField = v.Field
			f.orderDesc = v.Desc
		case specification.SelectSummary:
			f.summaryOnly = true
		}
	}
	return f
}

func (f specFilter) matches(s *entity.ChatSession) bool {
	if f.byID != nil && s.Id != *f.byID {
		return false
	}
	if f.ownedBy != nil && s.UserId != *f.ownedBy {
		return false
	}
	return true
}

func (r *ChatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.Id]; ok {
		return apperror.Conflict("session id already exists")
	}
	r.sessions[session.Id] = cloneSession(session)
	return nil
}

func (r *ChatSessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := parseSpecs(specs)
	for _, s := range r.sessions {
		if f.matches(s) {
			return cloneSession(s), nil
		}
	}
	return nil, nil
}

func (r *ChatSessionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := parseSpecs(specs)

	var out []*entity.ChatSession
	for _, s := range r.sessions {
		if !f.matches(s) {
			continue
		}
		c := cloneSession(s)
		if f.summaryOnly {
			c.Messages = nil
		}
		out = append(out, c)
	}

	if f.orderField != "" {
		sort.SliceStable(out, func(i, j int) bool {
			ti, tj := sortKey(out[i], f.orderField), sortKey(out[j], f.orderField)
			if f.orderDesc {
				return ti.After(tj)
			}
			return ti.Before(tj)
		})
	}
	return out, nil
}

func sortKey(s *entity.ChatSession, field string) time.Time {
	if field == "updated_at" {
		if s.UpdatedAt != nil {
			return *s.UpdatedAt
		}
		return s.CreatedAt
	}
	return s.CreatedAt
}

func (r *ChatSessionRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := parseSpecs(specs)
	var n int64
	for _, s := range r.sessions {
		if f.matches(s) {
			n++
		}
	}
	return n, nil
}

func (r *ChatSessionRepository) Exists(ctx context.Context, id, userId uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return ok && s.UserId == userId, nil
}

func (r *ChatSessionRepository) ReplaceMessages(ctx context.Context, id, userId uuid.UUID, messages []entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserId != userId {
		return apperror.NotFound("session not found or access denied")
	}
	s.Messages = append([]entity.ChatMessage(nil), messages...)
	now := time.Now()
	s.UpdatedAt = &now
	return nil
}

func (r *ChatSessionRepository) Rename(ctx context.Context, id, userId uuid.UUID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserId != userId {
		return apperror.NotFound("session not found or access denied")
	}
	s.Title = title
	now := time.Now()
	s.UpdatedAt = &now
	return nil
}

func (r *ChatSessionRepository) Delete(ctx context.Context, id, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserId != userId {
		return apperror.NotFound("session not found or access denied")
	}
	delete(r.sessions, id)
	return nil
}
