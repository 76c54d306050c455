package xhab

import (
	"time"
)

// Message is the associative payload traveling the bus. By convention a
// "type" key identifies the event kind as "<domain>.event.<name>"; everything
// else is event-specific. Messages are immutable by convention: the publisher
// relinquishes ownership on Publish, and every subscriber receives the same
// logical value and must treat it as read-only.
type Message map[string]any

// TypeKey is the conventional key identifying the event kind.
const TypeKey = "type"

// Type returns the conventional event-type value, or "" when absent or not a
// string.
func (m Message) Type() string {
	if s, ok := m[TypeKey].(string); ok {
		return s
	}
	return ""
}

// Callback consumes a delivered message. Callbacks run on the bus callback
// pool; they may block without stalling dispatch, but once started they are
// never canceled or interrupted.
type Callback func(msg Message)

// envelope pairs a message with its enqueue timestamp. The stamp is attached
// by Publish (from the injected clock), never by the publisher.
type envelope struct {
	msg     Message
	stamped time.Time
}
