// Package timing provides the shared real-time scheduler that drives delayed
// deliveries, token replenishment and periodic control.
package timing

import (
	"time"

	"github.com/sarchlab/slicesim/sim/hooking"
)

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	Now() time.Time
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// An Engine runs scheduled events when their time comes.
type Engine interface {
	hooking.Hookable
	EventScheduler

	// Start launches event dispatching. Calling Start more than once has no
	// effect.
	Start()

	// Close stops dispatching and abandons every pending event. It must not be
	// called from an event handler.
	Close()

	// Closed tells if Close has been called.
	Closed() bool

	// Pending returns the number of events waiting to fire.
	Pending() int
}

// ScheduleAfter schedules handler to run d after the engine's current time.
// A negative d is treated as zero.
func ScheduleAfter(engine Engine, d time.Duration, handler Handler) Event {
	if d < 0 {
		d = 0
	}

	evt := MakeEventBase(engine.Now().Add(d), handler)
	engine.Schedule(evt)

	return evt
}
