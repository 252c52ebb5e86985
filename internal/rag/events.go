package rag

// EventType discriminates the events emitted while answering a question.
type EventType string

const (
	// EventToken carries one generated text fragment.
	EventToken EventType = "token"
	// EventDone marks successful completion. No tokens follow it.
	EventDone EventType = "done"
	// EventError carries a terminal failure message. No tokens follow it.
	EventError EventType = "error"
)

// Event is a single item in an answer stream. Content is the token text for
// EventToken, a human-readable message for EventError, and empty for
// EventDone.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
}
