package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatgpt-clone-be/internal/apperror"
	"chatgpt-clone-be/internal/constant"
	"chatgpt-clone-be/internal/entity"
	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/internal/repository/contract"
	"chatgpt-clone-be/internal/repository/memory"
	"chatgpt-clone-be/internal/repository/specification"
	"chatgpt-clone-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator replays a fixed event sequence as the provider stream.
type scriptedGenerator struct {
	events  []llm.Event
	err     error
	history []llm.Message
}

func (g *scriptedGenerator) Generate(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Stream, error) {
	g.history = history
	if g.err != nil {
		return nil, g.err
	}
	s, ch := llm.NewStream(nil, len(g.events)+1)
	go func() {
		defer close(ch)
		for _, ev := range g.events {
			ch <- ev
		}
	}()
	return s, nil
}

// blockingGenerator emits its fragments and then waits for cancellation.
type blockingGenerator struct {
	fragments []string
}

func (g *blockingGenerator) Generate(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	s, ch := llm.NewStream(cancel, len(g.fragments)+1)
	go func() {
		defer close(ch)
		for _, f := range g.fragments {
			ch <- llm.Event{Type: llm.EventFragment, Fragment: f}
		}
		<-streamCtx.Done()
		ch <- llm.Event{Type: llm.EventFailed, Err: streamCtx.Err()}
	}()
	return s, nil
}

type failingStore struct {
	contract.ChatSessionRepository
}

func (f *failingStore) ReplaceMessages(ctx context.Context, id, userId uuid.UUID, messages []entity.ChatMessage) error {
	return errors.New("connection refused")
}

func seedSession(t *testing.T, store contract.ChatSessionRepository, prior []entity.ChatMessage) *entity.ChatSession {
	t.Helper()
	session := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    uuid.New(),
		Title:     "weather talk",
		Messages:  prior,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), session))
	return session
}

func collect(t *testing.T, ch <-chan TurnEvent) []TurnEvent {
	t.Helper()
	var out []TurnEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining turn events")
		}
	}
}

func storedMessages(t *testing.T, store contract.ChatSessionRepository, session *entity.ChatSession) []entity.ChatMessage {
	t.Helper()
	got, err := store.FindOne(context.Background(),
		specification.ByID{ID: session.Id},
		specification.UserOwnedBy{UserID: session.UserId},
	)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.Messages
}

func TestRunRejectsBlankMessage(t *testing.T) {
	store := memory.NewChatSessionRepository()
	session := seedSession(t, store, nil)
	r := NewReconciler(store, logger.NewNopLogger())

	_, err := r.Run(context.Background(), &scriptedGenerator{}, session, "   \t\n")

	require.Error(t, err)
	assert.Equal(t, apperror.KindInvalidArgument, apperror.KindOf(err))
	assert.Empty(t, storedMessages(t, store, session))
}

func TestRunFailsFastWhenProviderNotConfigured(t *testing.T) {
	store := memory.NewChatSessionRepository()
	session := seedSession(t, store, nil)
	r := NewReconciler(store, logger.NewNopLogger())
	gen := &scriptedGenerator{err: errors.Join(llm.ErrNotConfigured, errors.New("OPENROUTER_API_KEY not found"))}

	_, err := r.Run(context.Background(), gen, session, "hello")

	require.Error(t, err)
	assert.Equal(t, apperror.KindProviderUnavailable, apperror.KindOf(err))
	assert.Empty(t, storedMessages(t, store, session))
}

func TestSuccessfulTurnCommitsFinalText(t *testing.T) {
	store := memory.NewChatSessionRepository()
	session := seedSession(t, store, nil)
	r := NewReconciler(store, logger.NewNopLogger())

	// The final payload intentionally differs from the fragment concatenation:
	// the provider's terminal text wins.
	gen := &scriptedGenerator{events: []llm.Event{
		{Type: llm.EventFragment, Fragment: "Hel"},
		{Type: llm.EventFragment, Fragment: "lo"},
		{Type: llm.EventCompleted, FinalText: "Hello!"},
	}}

	ch, err := r.Run(context.Background(), gen, session, "hi there")
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 5)
	assert.Equal(t, TurnUserMessage, events[0].Type)
	assert.Equal(t, "hi there", events[0].Message.Content)
	assert.Equal(t, TurnAssistantStarted, events[1].Type)
	assert.True(t, events[1].Message.IsStreaming)

	// Deltas accumulate monotonically.
	assert.Equal(t, TurnDelta, events[2].Type)
	assert.Equal(t, "Hel", events[2].Message.Content)
	assert.Equal(t, TurnDelta, events[3].Type)
	assert.Equal(t, "Hello", events[3].Message.Content)

	assert.Equal(t, TurnCommitted, events[4].Type)
	assert.Equal(t, "Hello!", events[4].Message.Content)
	assert.False(t, events[4].Message.IsStreaming)

	stored := storedMessages(t, store, session)
	require.Len(t, stored, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, stored[0].Role)
	assert.Equal(t, "hi there", stored[0].Content)
	assert.Equal(t, constant.ChatMessageRoleAssistant, stored[1].Role)
	assert.Equal(t, "Hello!", stored[1].Content)
	assert.False(t, stored[1].IsStreaming)
}

func TestZeroFragmentCompletionStillCommits(t *testing.T) {
	store := memory.NewChatSessionRepository()
	session := seedSession(t, store, nil)
	r := NewReconciler(store, logger.NewNopLogger())
	gen := &scriptedGenerator{events: []llm.Event{
		{Type: llm.EventCompleted, FinalText: ""},
	}}

	ch, err := r.Run(context.Background(), gen, session, "hello?")
	require.NoError(t, err)

	events := collect(t, ch)
	last := events[len(events)-1]
	assert.Equal(t, TurnCommitted, last.Type)
	assert.Equal(t, "", last.Message.Content)

	stored := storedMessages(t, store, session)
	require.Len(t, stored, 2)
	assert.Equal(t, "", stored[1].Content)
}

func TestAbortCommitsPartialContent(t *testing.T) {
	store := memory.NewChatSessionRepository()
	session := seedSession(t, store, nil)
	r := NewReconciler(store, logger.NewNopLogger())
	gen := &blockingGenerator{fragments: []string{"The answer ", "is "}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := r.Run(ctx, gen, session, "tell me everything")
	require.NoError(t, err)

	// Drain until both fragments arrived, then disconnect.
	seen := 0
	for ev := range ch {
		if ev.Type == TurnDelta {
			seen++
			if seen == 2 {
				cancel()
			}
		}
		if ev.Type.Terminal() {
			assert.Equal(t, TurnAborted, ev.Type)
			assert.Equal(t, "The answer is ", ev.Message.Content)
			assert.False(t, ev.Message.IsStreaming)
		}
	}

	stored := storedMessages(t, store, session)
	require.Len(t, stored, 2)
	assert.Equal(t, "The answer is ", stored[1].Content)
	assert.False(t, stored[1].IsStreaming)
}

func TestStreamFailureCommitsPartialContent(t *testing.T) {
	store := memory.NewChatSessionRepository()
	session := seedSession(t, store, nil)
	r := NewReconciler(store, logger.NewNopLogger())
	gen := &scriptedGenerator{events: []llm.Event{
		{Type: llm.EventFragment, Fragment: "Once upon"},
		{Type: llm.EventFailed, Err: errors.New("upstream reset")},
	}}

	ch, err := r.Run(context.Background(), gen, session, "a story please")
	require.NoError(t, err)

	events := collect(t, ch)
	last := events[len(events)-1]
	assert.Equal(t, TurnStreamFailed, last.Type)
	assert.Equal(t, apperror.KindStreamFailure, apperror.KindOf(last.Err))

	stored := storedMessages(t, store, session)
	require.Len(t, stored, 2)
	assert.Equal(t, "Once upon", stored[1].Content)
}

func TestCommitFailureIsReported(t *testing.T) {
	base := memory.NewChatSessionRepository()
	session := seedSession(t, base, nil)
	store := &failingStore{ChatSessionRepository: base}
	r := NewReconciler(store, logger.NewNopLogger())
	gen := &scriptedGenerator{events: []llm.Event{
		{Type: llm.EventCompleted, FinalText: "done"},
	}}

	ch, err := r.Run(context.Background(), gen, session, "hello")
	require.NoError(t, err)

	events := collect(t, ch)
	last := events[len(events)-1]
	assert.Equal(t, TurnCommitFailed, last.Type)
	assert.Equal(t, apperror.KindCommitFailure, apperror.KindOf(last.Err))
	// The content the caller saw is still carried on the terminal event.
	assert.Equal(t, "done", last.Message.Content)
}

func TestTerminalEventSurvivesSlowReader(t *testing.T) {
	store := memory.NewChatSessionRepository()
	session := seedSession(t, store, nil)
	r := NewReconciler(store, logger.NewNopLogger())

	// Enough fragments to overrun the event buffer while nobody reads.
	fragments := make([]string, 30)
	for i := range fragments {
		fragments[i] = "x"
	}
	gen := &blockingGenerator{fragments: fragments}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Run(ctx, gen, session, "tell me everything")
	require.NoError(t, err)

	// Let the buffer fill, disconnect, then come back well after the old
	// events queued up. The terminal event must still be waiting.
	time.Sleep(150 * time.Millisecond)
	cancel()
	time.Sleep(2 * time.Second)

	events := collect(t, ch)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Type.Terminal())
	assert.False(t, last.Message.IsStreaming)

	stored := storedMessages(t, store, session)
	require.Len(t, stored, 2)
	assert.False(t, stored[1].IsStreaming)
}

func TestSystemMessagesNeverReachProviderOrStore(t *testing.T) {
	store := memory.NewChatSessionRepository()
	prior := []entity.ChatMessage{
		{Id: uuid.New(), Role: constant.ChatMessageRoleSystem, Content: "internal prompt", CreatedAt: time.Now()},
		{Id: uuid.New(), Role: constant.ChatMessageRoleUser, Content: "earlier question", CreatedAt: time.Now()},
		{Id: uuid.New(), Role: constant.ChatMessageRoleAssistant, Content: "earlier answer", CreatedAt: time.Now()},
	}
	session := seedSession(t, store, prior)
	r := NewReconciler(store, logger.NewNopLogger())
	gen := &scriptedGenerator{events: []llm.Event{
		{Type: llm.EventCompleted, FinalText: "fresh answer"},
	}}

	ch, err := r.Run(context.Background(), gen, session, "new question")
	require.NoError(t, err)
	collect(t, ch)

	// Provider payload: prior user/assistant plus the new user message.
	require.Len(t, gen.history, 3)
	for _, m := range gen.history {
		assert.NotEqual(t, constant.ChatMessageRoleSystem, m.Role)
	}

	stored := storedMessages(t, store, session)
	require.Len(t, stored, 4)
	for _, m := range stored {
		assert.NotEqual(t, constant.ChatMessageRoleSystem, m.Role)
	}
}
