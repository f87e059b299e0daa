package stream

import (
	"chatgpt-clone-be/internal/entity"
)

type TurnEventType int

const (
	// TurnUserMessage carries the user's message, emitted before the provider
	// is contacted so the caller can render it immediately.
	TurnUserMessage TurnEventType = iota

	// TurnAssistantStarted carries the assistant placeholder (empty content,
	// IsStreaming=true), enabling a "thinking" indicator.
	TurnAssistantStarted

	// TurnDelta carries one fragment. Message holds the accumulated snapshot.
	TurnDelta

	// TurnCommitted terminates a successful turn: the finalized log is durable.
	TurnCommitted

	// TurnAborted terminates a cancelled turn. Partial content gathered so far
	// has been committed with IsStreaming=false.
	TurnAborted

	// TurnStreamFailed terminates a turn whose provider stream broke mid-way.
	// Partial content has been committed; Err carries the provider failure.
	TurnStreamFailed

	// TurnCommitFailed terminates a turn whose content is final and was shown
	// to the caller, but could not be persisted. The caller must be told the
	// turn is not durable.
	TurnCommitFailed
)

// TurnEvent is one caller-visible update of a running turn. Events arrive in
// strict generation order and exactly one terminal event
// (Committed/Aborted/StreamFailed/CommitFailed) closes the channel.
type TurnEvent struct {
	Type    TurnEventType
	Message *entity.ChatMessage // snapshot, safe to retain
	Delta   string              // set for TurnDelta
	Err     error               // set for the failure terminals
}

func (t TurnEventType) String() string {
	switch t {
	case TurnUserMessage:
		return "user_message"
	case TurnAssistantStarted:
		return "assistant_started"
	case TurnDelta:
		return "delta"
	case TurnCommitted:
		return "committed"
	case TurnAborted:
		return "aborted"
	case TurnStreamFailed:
		return "stream_failed"
	case TurnCommitFailed:
		return "commit_failed"
	}
	return "unknown"
}

func (t TurnEventType) Terminal() bool {
	switch t {
	case TurnCommitted, TurnAborted, TurnStreamFailed, TurnCommitFailed:
		return true
	}
	return false
}
