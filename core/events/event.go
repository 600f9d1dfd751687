package events

import "vester/core/types"

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
}

// Payload is implemented by events that expose their canonical wire form.
// Emitters that persist or export events assert this interface to obtain the
// attribute payload.
type Payload interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (journal, metrics,
// indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for components that expose events optionally.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single event out to several emitters in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}
