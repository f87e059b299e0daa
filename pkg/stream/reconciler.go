package stream

import (
	"context"
	"errors"
	"strings"
	"time"

	"chatgpt-clone-be/internal/apperror"
	"chatgpt-clone-be/internal/constant"
	"chatgpt-clone-be/internal/entity"
	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/internal/repository/contract"
	"chatgpt-clone-be/pkg/llm"

	"github.com/google/uuid"
)

// Generator opens a token stream for a conversation. *llm.Gateway satisfies
// it; tests substitute deterministic fakes.
type Generator interface {
	Generate(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Stream, error)
}

// Reconciler drives a single chat turn: it relays the provider's fragments to
// the caller while buffering them, and commits the finalized message log to
// the store exactly once, after the stream terminates. Partial content from
// an aborted or failed stream is committed too (losing a half-generated
// answer is worse than keeping a truncated one).
//
// Turns on one session are caller-serialized; the reconciler itself runs each
// turn as a single goroutine, which is what makes the commit exactly-once.
type Reconciler struct {
	store  contract.ChatSessionRepository
	logger logger.ILogger
}

func NewReconciler(store contract.ChatSessionRepository, log logger.ILogger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: log,
	}
}

// Run starts a turn for the given session and returns the caller-visible
// event channel. Pre-stream failures (blank input, unconfigured provider,
// provider rejection) are returned synchronously; nothing is emitted and
// nothing is persisted for them.
func (r *Reconciler) Run(ctx context.Context, gen Generator, session *entity.ChatSession, userText string) (<-chan TurnEvent, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, apperror.InvalidArgument("chat message must not be empty")
	}

	priorLog := filterSystemMessages(session.Messages)

	now := time.Now()
	userMessage := entity.ChatMessage{
		Id:        uuid.New(),
		Role:      constant.ChatMessageRoleUser,
		Content:   userText,
		CreatedAt: now,
	}
	assistantMessage := entity.ChatMessage{
		Id:          uuid.New(),
		Role:        constant.ChatMessageRoleAssistant,
		Content:     "",
		CreatedAt:   now,
		IsStreaming: true,
	}

	history := make([]llm.Message, 0, len(priorLog)+1)
	for _, m := range priorLog {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	history = append(history, llm.Message{Role: userMessage.Role, Content: userMessage.Content})

	// Credential/config problems and provider rejections surface here, before
	// any event reaches the caller.
	tokenStream, err := gen.Generate(ctx, history)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, apperror.ProviderUnavailable("llm provider not configured", err)
		}
		return nil, apperror.ProviderUnavailable("llm provider rejected the request", err)
	}

	out := make(chan TurnEvent, 16)
	go r.relay(ctx, tokenStream, session, priorLog, userMessage, assistantMessage, out)
	return out, nil
}

func (r *Reconciler) relay(
	ctx context.Context,
	tokenStream *llm.Stream,
	session *entity.ChatSession,
	priorLog []entity.ChatMessage,
	userMessage entity.ChatMessage,
	assistantMessage entity.ChatMessage,
	out chan<- TurnEvent,
) {
	defer close(out)

	emit := func(ev TurnEvent) {
		// A caller that disconnected stops draining; never block on it.
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	emit(TurnEvent{Type: TurnUserMessage, Message: snapshot(userMessage)})
	emit(TurnEvent{Type: TurnAssistantStarted, Message: snapshot(assistantMessage)})

	for {
		select {
		case <-ctx.Done():
			tokenStream.Cancel()
			r.finishPartial(ctx, session, priorLog, userMessage, assistantMessage, TurnAborted, ctx.Err(), out)
			return

		case ev, ok := <-tokenStream.Events():
			if !ok {
				// Defensive: a well-behaved provider terminates explicitly.
				r.finishPartial(ctx, session, priorLog, userMessage, assistantMessage, TurnStreamFailed,
					errors.New("provider stream closed without terminal event"), out)
				return
			}

			switch ev.Type {
			case llm.EventFragment:
				assistantMessage.Content += ev.Fragment
				emit(TurnEvent{Type: TurnDelta, Delta: ev.Fragment, Message: snapshot(assistantMessage)})

			case llm.EventCompleted:
				// The provider's final payload is authoritative, even when it
				// differs from the fragment concatenation.
				assistantMessage.Content = ev.FinalText
				assistantMessage.IsStreaming = false
				r.commitAndFinish(ctx, session, priorLog, userMessage, assistantMessage, TurnCommitted, nil, out)
				return

			case llm.EventFailed:
				if errors.Is(ev.Err, context.Canceled) {
					r.finishPartial(ctx, session, priorLog, userMessage, assistantMessage, TurnAborted, ev.Err, out)
				} else {
					r.finishPartial(ctx, session, priorLog, userMessage, assistantMessage, TurnStreamFailed, apperror.StreamFailure(ev.Err), out)
				}
				return
			}
		}
	}
}

func (r *Reconciler) finishPartial(
	ctx context.Context,
	session *entity.ChatSession,
	priorLog []entity.ChatMessage,
	userMessage entity.ChatMessage,
	assistantMessage entity.ChatMessage,
	terminal TurnEventType,
	cause error,
	out chan<- TurnEvent,
) {
	assistantMessage.IsStreaming = false
	r.logger.Warn("StreamReconciler", "Turn ended before completion, committing partial content", map[string]interface{}{
		"session_id":  session.Id,
		"user_id":     session.UserId,
		"partial_len": len(assistantMessage.Content),
		"cause":       errString(cause),
	})
	r.commitAndFinish(ctx, session, priorLog, userMessage, assistantMessage, terminal, cause, out)
}

// commitAndFinish is the single durability point of a turn. It runs at most
// once per Run invocation and emits exactly one terminal event.
func (r *Reconciler) commitAndFinish(
	ctx context.Context,
	session *entity.ChatSession,
	priorLog []entity.ChatMessage,
	userMessage entity.ChatMessage,
	assistantMessage entity.ChatMessage,
	terminal TurnEventType,
	cause error,
	out chan<- TurnEvent,
) {
	finalLog := make([]entity.ChatMessage, 0, len(priorLog)+2)
	finalLog = append(finalLog, priorLog...)
	finalLog = append(finalLog, userMessage, assistantMessage)

	// The write must survive caller disconnection; committing is exactly what
	// an aborted turn still owes the user.
	commitCtx := context.WithoutCancel(ctx)
	if err := r.store.ReplaceMessages(commitCtx, session.Id, session.UserId, finalLog); err != nil {
		// Silent-data-loss risk: the caller already saw the content.
		r.logger.Error("StreamReconciler", "Commit failed after stream terminated", map[string]interface{}{
			"session_id": session.Id,
			"user_id":    session.UserId,
			"error":      err.Error(),
		})
		sendTerminal(out, TurnEvent{Type: TurnCommitFailed, Message: snapshot(assistantMessage), Err: apperror.CommitFailure(err)})
		return
	}

	sendTerminal(out, TurnEvent{Type: terminal, Message: snapshot(assistantMessage), Err: cause})
}

// sendTerminal delivers the terminal event even when the caller's context is
// already cancelled. The buffered channel absorbs it for readers that drain
// late; the deadline keeps an absent reader from leaking this goroutine. A
// reader that comes back after the deadline sees only a closed channel, so
// the window is generous. The commit itself has already happened either way.
const terminalDeliveryWindow = 5 * time.Second

func sendTerminal(out chan<- TurnEvent, ev TurnEvent) {
	select {
	case out <- ev:
	case <-time.After(terminalDeliveryWindow):
	}
}

// filterSystemMessages drops system-role entries; they never reach the
// provider payload from here, persistence, or display.
func filterSystemMessages(messages []entity.ChatMessage) []entity.ChatMessage {
	out := make([]entity.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == constant.ChatMessageRoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

func snapshot(m entity.ChatMessage) *entity.ChatMessage {
	c := m
	return &c
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
