package llm

import "context"

type EventType int

const (
	// EventFragment carries an incremental piece of assistant output.
	EventFragment EventType = iota
	// EventCompleted terminates the stream. FinalText is the authoritative
	// full response, which may differ from the fragment concatenation if the
	// provider's final payload does.
	EventCompleted
	// EventFailed terminates the stream with an error. Fragments already
	// delivered remain valid partial content.
	EventFailed
)

type Event struct {
	Type      EventType
	Fragment  string
	FinalText string
	Err       error
}

// Stream is a finite sequence of events ending in exactly one terminal event
// (Completed or Failed), after which the channel is closed.
type Stream struct {
	events chan Event
	cancel context.CancelFunc
}

// NewStream returns a stream and the channel the producer feeds. The producer
// must send exactly one terminal event and then close the channel.
func NewStream(cancel context.CancelFunc, buffer int) (*Stream, chan<- Event) {
	ch := make(chan Event, buffer)
	return &Stream{events: ch, cancel: cancel}, ch
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

// Cancel stops consuming provider tokens. The producer reacts to the
// cancelled context and terminates the stream with EventFailed.
func (s *Stream) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
