package session

import "sync"

// Stream tags the origin of a data event.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// EventKind identifies the type of a session event.
type EventKind string

const (
	EventData   EventKind = "session-data"
	EventClosed EventKind = "session-closed"
)

// Event is a notification published to the EventSink. Data events carry one
// line of output with the trailing CR/LF removed; closed events only carry the
// session id.
type Event struct {
	Kind      EventKind `json:"event"`
	SessionID string    `json:"session_id"`
	Stream    Stream    `json:"stream,omitempty"`
	Data      string    `json:"data,omitempty"`
}

// EventSink receives session events. Publish is fire-and-forget: it must not
// block the caller, and there is no backpressure towards the session runners.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// MultiSink publishes every event to each of its sinks in order.
type MultiSink []EventSink

func (ms MultiSink) Publish(e Event) {
	for _, s := range ms {
		s.Publish(e)
	}
}

// emitter publishes the events of one session and guarantees the closure
// notification fires at most once.
type emitter struct {
	id        string
	sink      EventSink
	closeOnce sync.Once
}

func (e *emitter) line(stream Stream, data string) {
	e.sink.Publish(Event{Kind: EventData, SessionID: e.id, Stream: stream, Data: data})
}

func (e *emitter) closed() {
	e.closeOnce.Do(func() {
		e.sink.Publish(Event{Kind: EventClosed, SessionID: e.id})
	})
}
