package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"chatgpt-clone-be/internal/apperror"
	"chatgpt-clone-be/internal/constant"
	"chatgpt-clone-be/internal/dto"
	"chatgpt-clone-be/internal/entity"
	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/internal/repository/memory"
	"chatgpt-clone-be/pkg/llm"
	"chatgpt-clone-be/pkg/stream"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider satisfies llm.LLMProvider with a scripted response.
type fakeProvider struct {
	response string
}

func (p *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.response, nil
}

func (p *fakeProvider) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Stream, error) {
	s, ch := llm.NewStream(nil, 4)
	go func() {
		defer close(ch)
		ch <- llm.Event{Type: llm.EventFragment, Fragment: p.response}
		ch <- llm.Event{Type: llm.EventCompleted, FinalText: p.response}
	}()
	return s, nil
}

// fixedGatewayService pins one gateway for the whole test.
type fixedGatewayService struct {
	gateway *llm.Gateway
}

func (f *fixedGatewayService) Gateway() *llm.Gateway { return f.gateway }
func (f *fixedGatewayService) GetSettings(ctx context.Context) (*dto.LLMSettingsResponse, error) {
	return nil, nil
}
func (f *fixedGatewayService) UpdateSettings(ctx context.Context, req *dto.UpdateLLMSettingsRequest) (*dto.LLMSettingsResponse, error) {
	return nil, nil
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []*dto.TurnCommittedMessage
}

func (c *capturingPublisher) PublishTurnCommitted(payload *dto.TurnCommittedMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, payload)
	return nil
}

func (c *capturingPublisher) published() []*dto.TurnCommittedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*dto.TurnCommittedMessage(nil), c.messages...)
}

func newTestChatService(t *testing.T) (IChatService, *memory.ChatSessionRepository, *capturingPublisher) {
	t.Helper()
	repo := memory.NewChatSessionRepository()
	log := logger.NewNopLogger()

	gateway := llm.NewGateway(llm.Config{
		Provider:      llm.ProviderOllama,
		Model:         "llama3",
		OllamaBaseURL: "http://localhost:11434",
	}, &fakeProvider{response: "certainly"})

	pub := &capturingPublisher{}
	svc := NewChatService(
		repo,
		stream.NewReconciler(repo, log),
		&fixedGatewayService{gateway: gateway},
		pub,
		nil, // no audit bus in unit tests
		nil, // no hub
		log,
	)
	return svc, repo, pub
}

func drainTurn(t *testing.T, turn *TurnStream) []stream.TurnEvent {
	t.Helper()
	var out []stream.TurnEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-turn.Events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining turn events")
		}
	}
}

func TestRelayTurnDropsEventsAfterCallerLeaves(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	s := svc.(*chatService)

	session := &entity.ChatSession{Id: uuid.New(), UserId: uuid.New(), Title: "abandoned", CreatedAt: time.Now()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller already gone

	in := make(chan stream.TurnEvent)
	out := make(chan stream.TurnEvent) // nobody reads

	done := make(chan struct{})
	go func() {
		s.relayTurn(ctx, session, "hello", in, out)
		close(done)
	}()

	for i := 0; i < 4; i++ {
		in <- stream.TurnEvent{Type: stream.TurnDelta, Delta: "x"}
	}
	close(in)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay goroutine still blocked after the caller stopped reading")
	}
}

func TestSubmitTurnUnknownSessionIsNotFound(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	unknown := uuid.New()

	_, err := svc.SubmitTurn(context.Background(), uuid.New(), &dto.SendChatRequest{
		ChatSessionId: &unknown,
		Chat:          "hello",
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestSubmitTurnOtherUsersSessionIsNotFound(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	owner := uuid.New()
	session := &entity.ChatSession{Id: uuid.New(), UserId: owner, Title: "private", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), session))

	_, err := svc.SubmitTurn(context.Background(), uuid.New(), &dto.SendChatRequest{
		ChatSessionId: &session.Id,
		Chat:          "let me in",
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestSubmitTurnCreatesSessionWithDerivedTitle(t *testing.T) {
	svc, _, pub := newTestChatService(t)
	userId := uuid.New()
	longText := strings.Repeat("why is the sky blue ", 10)

	turn, err := svc.SubmitTurn(context.Background(), userId, &dto.SendChatRequest{Chat: longText})
	require.NoError(t, err)
	assert.True(t, turn.Created)

	events := drainTurn(t, turn)
	require.NotEmpty(t, events)
	assert.Equal(t, stream.TurnCommitted, events[len(events)-1].Type)

	history, err := svc.GetChatHistory(context.Background(), userId, turn.SessionId)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, history[0].Role)
	assert.Equal(t, "certainly", history[1].Content)

	sessions, err := svc.GetAllSessions(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Len(t, []rune(sessions[0].Title), constant.ChatSessionTitleMaxLen)
	assert.True(t, strings.HasPrefix(longText, sessions[0].Title))

	// The committed turn reached the async title worker's bus.
	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, turn.SessionId, published[0].ChatSessionId)
}

func TestSubmitTurnBlankMessageCreatesNothing(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	userId := uuid.New()

	_, err := svc.SubmitTurn(context.Background(), userId, &dto.SendChatRequest{Chat: "   "})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidArgument, apperror.KindOf(err))

	sessions, err := svc.GetAllSessions(context.Background(), userId)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestCreateSessionWithClientIdConflicts(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	userId := uuid.New()
	id := uuid.New()

	_, err := svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{Id: &id})
	require.NoError(t, err)

	_, err = svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{Id: &id})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestCreateSessionDefaultsTitle(t *testing.T) {
	svc, _, _ := newTestChatService(t)
	userId := uuid.New()

	res, err := svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, constant.ChatSessionDefaultTitle, res.Title)
}

func TestGetAllSessionsOrdersByRecentActivity(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	userId := uuid.New()

	older := &entity.ChatSession{Id: uuid.New(), UserId: userId, Title: "older", CreatedAt: time.Now().Add(-time.Hour)}
	newer := &entity.ChatSession{Id: uuid.New(), UserId: userId, Title: "newer", CreatedAt: time.Now().Add(-time.Minute)}
	require.NoError(t, repo.Create(context.Background(), older))
	require.NoError(t, repo.Create(context.Background(), newer))

	// Touching the older session bumps it to the top.
	require.NoError(t, repo.ReplaceMessages(context.Background(), older.Id, userId, []entity.ChatMessage{
		{Id: uuid.New(), Role: constant.ChatMessageRoleUser, Content: "ping", CreatedAt: time.Now()},
	}))

	sessions, err := svc.GetAllSessions(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "older", sessions[0].Title)
	assert.Equal(t, "newer", sessions[1].Title)
}

func TestGetChatHistoryHidesSystemMessages(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	userId := uuid.New()
	session := &entity.ChatSession{
		Id:     uuid.New(),
		UserId: userId,
		Title:  "mixed",
		Messages: []entity.ChatMessage{
			{Id: uuid.New(), Role: constant.ChatMessageRoleSystem, Content: "hidden", CreatedAt: time.Now()},
			{Id: uuid.New(), Role: constant.ChatMessageRoleUser, Content: "visible", CreatedAt: time.Now()},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), session))

	history, err := svc.GetChatHistory(context.Background(), userId, session.Id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "visible", history[0].Content)
}

func TestRenameSessionValidatesTitle(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	userId := uuid.New()
	session := &entity.ChatSession{Id: uuid.New(), UserId: userId, Title: "before", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), session))

	err := svc.RenameSession(context.Background(), userId, session.Id, &dto.RenameSessionRequest{Title: "  "})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidArgument, apperror.KindOf(err))

	require.NoError(t, svc.RenameSession(context.Background(), userId, session.Id, &dto.RenameSessionRequest{Title: "after"}))

	sessions, err := svc.GetAllSessions(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "after", sessions[0].Title)
}

func TestDeleteSessionRemovesHistory(t *testing.T) {
	svc, repo, _ := newTestChatService(t)
	userId := uuid.New()
	session := &entity.ChatSession{Id: uuid.New(), UserId: userId, Title: "doomed", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), session))

	require.NoError(t, svc.DeleteSession(context.Background(), userId, session.Id))

	_, err := svc.GetChatHistory(context.Background(), userId, session.Id)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	// Deleting again reports NotFound, not success.
	err = svc.DeleteSession(context.Background(), userId, session.Id)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
