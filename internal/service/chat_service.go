package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"chatgpt-clone-be/internal/apperror"
	"chatgpt-clone-be/internal/constant"
	"chatgpt-clone-be/internal/dto"
	"chatgpt-clone-be/internal/entity"
	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/internal/repository/contract"
	"chatgpt-clone-be/internal/repository/specification"
	"chatgpt-clone-be/pkg/events"
	pktNats "chatgpt-clone-be/pkg/nats"
	"chatgpt-clone-be/pkg/stream"

	"github.com/google/uuid"
)

// SessionNotifier pushes session updates to the owner's other connected
// devices. Implemented by the WebSocket Hub; nil disables real-time delivery.
type SessionNotifier interface {
	NotifyTurnEvent(userId, sessionId uuid.UUID, ev stream.TurnEvent)
	NotifySessionsChanged(userId uuid.UUID)
}

// TurnStream is the caller-facing handle of a running turn. Created reports
// whether this turn implicitly created the session it runs on.
type TurnStream struct {
	SessionId uuid.UUID
	Created   bool
	Events    <-chan stream.TurnEvent
}

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error)
	RenameSession(ctx context.Context, userId, sessionId uuid.UUID, request *dto.RenameSessionRequest) error
	DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error
	SubmitTurn(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*TurnStream, error)
}

type chatService struct {
	chatSessionRepository contract.ChatSessionRepository
	reconciler            *stream.Reconciler
	llmSettingsService    ILLMSettingsService
	publisherService      IPublisherService
	auditPublisher        *pktNats.Publisher
	notifier              SessionNotifier
	logger                logger.ILogger
}

func NewChatService(
	chatSessionRepository contract.ChatSessionRepository,
	reconciler *stream.Reconciler,
	llmSettingsService ILLMSettingsService,
	publisherService IPublisherService,
	auditPublisher *pktNats.Publisher,
	notifier SessionNotifier,
	log logger.ILogger,
) IChatService {
	return &chatService{
		chatSessionRepository: chatSessionRepository,
		reconciler:            reconciler,
		llmSettingsService:    llmSettingsService,
		publisherService:      publisherService,
		auditPublisher:        auditPublisher,
		notifier:              notifier,
		logger:                log,
	}
}

func (s *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	id := uuid.New()
	if request.Id != nil {
		id = *request.Id
	}

	title := strings.TrimSpace(request.Title)
	if title == "" {
		title = constant.ChatSessionDefaultTitle
	}

	session := &entity.ChatSession{
		Id:        id,
		UserId:    userId,
		Title:     title,
		Messages:  []entity.ChatMessage{},
		CreatedAt: time.Now(),
	}

	if err := s.chatSessionRepository.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.auditPublisher.Publish(ctx, events.NewSessionCreated(session.Id, userId)); err != nil {
		s.logger.Warn("ChatService", "Failed to publish session created event", map[string]interface{}{"error": err.Error()})
	}
	if s.notifier != nil {
		s.notifier.NotifySessionsChanged(userId)
	}

	return &dto.CreateSessionResponse{
		Id:        session.Id,
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}, nil
}

func (s *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]dto.GetAllSessionsResponse, error) {
	sessions, err := s.chatSessionRepository.FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.SelectSummary{},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]dto.GetAllSessionsResponse, 0, len(sessions))
	for _, session := range sessions {
		response = append(response, dto.GetAllSessionsResponse{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}
	return response, nil
}

func (s *chatService) GetChatHistory(ctx context.Context, userId, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error) {
	session, err := s.findOwnedSession(ctx, userId, sessionId)
	if err != nil {
		return nil, err
	}

	response := make([]dto.GetChatHistoryResponse, 0, len(session.Messages))
	for _, m := range session.Messages {
		// System-role entries are provider plumbing, never conversation.
		if m.Role == constant.ChatMessageRoleSystem {
			continue
		}
		response = append(response, dto.GetChatHistoryResponse{
			Id:          m.Id,
			Role:        m.Role,
			Content:     m.Content,
			CreatedAt:   m.CreatedAt,
			IsStreaming: m.IsStreaming,
		})
	}
	return response, nil
}

func (s *chatService) RenameSession(ctx context.Context, userId, sessionId uuid.UUID, request *dto.RenameSessionRequest) error {
	title := strings.TrimSpace(request.Title)
	if title == "" {
		return apperror.InvalidArgument("session title must not be empty")
	}

	if err := s.chatSessionRepository.Rename(ctx, sessionId, userId, title); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifySessionsChanged(userId)
	}
	return nil
}

func (s *chatService) DeleteSession(ctx context.Context, userId, sessionId uuid.UUID) error {
	if err := s.chatSessionRepository.Delete(ctx, sessionId, userId); err != nil {
		return err
	}

	if err := s.auditPublisher.Publish(ctx, events.NewSessionDeleted(sessionId, userId)); err != nil {
		s.logger.Warn("ChatService", "Failed to publish session deleted event", map[string]interface{}{"error": err.Error()})
	}
	if s.notifier != nil {
		s.notifier.NotifySessionsChanged(userId)
	}
	return nil
}

// SubmitTurn runs one full chat turn: resolve (or create) the session, hand
// the conversation to the reconciler against the currently active gateway,
// and fan the turn's events out to the caller and the owner's other devices.
func (s *chatService) SubmitTurn(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*TurnStream, error) {
	if strings.TrimSpace(request.Chat) == "" {
		return nil, apperror.InvalidArgument("chat message must not be empty")
	}

	var session *entity.ChatSession
	created := false

	if request.ChatSessionId == nil {
		session = &entity.ChatSession{
			Id:        uuid.New(),
			UserId:    userId,
			Title:     deriveTitle(request.Chat),
			Messages:  []entity.ChatMessage{},
			CreatedAt: time.Now(),
		}
		if err := s.chatSessionRepository.Create(ctx, session); err != nil {
			return nil, err
		}
		created = true

		if err := s.auditPublisher.Publish(ctx, events.NewSessionCreated(session.Id, userId)); err != nil {
			s.logger.Warn("ChatService", "Failed to publish session created event", map[string]interface{}{"error": err.Error()})
		}
		if s.notifier != nil {
			s.notifier.NotifySessionsChanged(userId)
		}
	} else {
		var err error
		session, err = s.findOwnedSession(ctx, userId, *request.ChatSessionId)
		if err != nil {
			return nil, err
		}
	}

	// The gateway is pinned here: a provider switch mid-stream must not
	// affect this turn.
	gateway := s.llmSettingsService.Gateway()

	turnEvents, err := s.reconciler.Run(ctx, gateway, session, request.Chat)
	if err != nil {
		return nil, err
	}

	out := make(chan stream.TurnEvent, 16)
	go s.relayTurn(ctx, session, request.Chat, turnEvents, out)

	return &TurnStream{
		SessionId: session.Id,
		Created:   created,
		Events:    out,
	}, nil
}

// relayTurn forwards reconciler events to the caller while mirroring them to
// the hub, and fires the post-commit side effects (title derivation, audit).
func (s *chatService) relayTurn(ctx context.Context, session *entity.ChatSession, userText string, in <-chan stream.TurnEvent, out chan<- stream.TurnEvent) {
	defer close(out)

	for ev := range in {
		if s.notifier != nil {
			s.notifier.NotifyTurnEvent(session.UserId, session.Id, ev)
		}

		if ev.Type == stream.TurnCommitted {
			s.afterCommit(ctx, session, userText)
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			// Caller stopped reading; keep draining so the hub mirror and
			// post-commit side effects still run.
		}
	}
}

func (s *chatService) afterCommit(ctx context.Context, session *entity.ChatSession, userText string) {
	if s.publisherService != nil {
		err := s.publisherService.PublishTurnCommitted(&dto.TurnCommittedMessage{
			ChatSessionId:    session.Id,
			UserId:           session.UserId,
			FirstUserMessage: userText,
		})
		if err != nil {
			s.logger.Warn("ChatService", "Failed to publish turn committed message", map[string]interface{}{"error": err.Error()})
		}
	}

	auditCtx := context.WithoutCancel(ctx)
	if err := s.auditPublisher.Publish(auditCtx, events.NewTurnCommitted(session.Id, session.UserId, len(session.Messages)+2)); err != nil {
		s.logger.Warn("ChatService", "Failed to publish turn committed event", map[string]interface{}{"error": err.Error()})
	}

	if s.notifier != nil {
		s.notifier.NotifySessionsChanged(session.UserId)
	}
}

func (s *chatService) findOwnedSession(ctx context.Context, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := s.chatSessionRepository.FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("session not found or access denied")
	}
	return session, nil
}

// deriveTitle names an implicitly created session after its first message,
// the same convenience default the sidebar shows until the user renames it.
func deriveTitle(userText string) string {
	title := strings.TrimSpace(userText)
	if utf8.RuneCountInString(title) <= constant.ChatSessionTitleMaxLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:constant.ChatSessionTitleMaxLen])
}
