package events

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Payload is implemented by typed event payloads that can render themselves
// into the wire-level Event representation.
type Payload interface {
	EventType() string
	Event() *Event
}

// Emitter receives lifecycle events from the settlement engines.
type Emitter interface {
	Emit(Payload)
}

// NoopEmitter satisfies the Emitter interface while discarding every event.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Payload) {}
