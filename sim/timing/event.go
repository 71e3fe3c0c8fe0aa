package timing

import (
	"time"

	"github.com/sarchlab/slicesim/sim/hooking"
)

// An Event is something going to happen in the future.
type Event interface {
	// Return the time that the event should happen
	Time() time.Time

	// Returns the handler that can should handle the event
	Handler() Handler
}

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
// The Detail field carries the error returned by the handler, if any.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}

// EventBase provides the basic fields and getters for other events
type EventBase struct {
	time    time.Time
	handler Handler
}

// NewEventBase creates a new EventBase
func NewEventBase(t time.Time, handler Handler) *EventBase {
	e := new(EventBase)
	e.time = t
	e.handler = handler

	return e
}

// MakeEventBase creates a new EventBase value.
func MakeEventBase(t time.Time, handler Handler) EventBase {
	return EventBase{time: t, handler: handler}
}

// Time return the time that the event is going to happen
func (e EventBase) Time() time.Time {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// A Handler defines a domain for the events.
//
// Handlers run on the engine's dispatcher goroutine. They must return quickly
// and must never block, otherwise every other scheduled event is delayed.
type Handler interface {
	Handle(e Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e Event) error

// Handle calls f(e).
func (f HandlerFunc) Handle(e Event) error {
	return f(e)
}
