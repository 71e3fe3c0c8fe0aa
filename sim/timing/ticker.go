package timing

import (
	"sync"
	"time"
)

// A Tickable is updated on every tick of a Ticker.
type Tickable interface {
	Tick(now time.Time)
}

// TickFunc adapts a function to the Tickable interface.
type TickFunc func(now time.Time)

// Tick calls f(now).
func (f TickFunc) Tick(now time.Time) {
	f(now)
}

// TickEvent is the event a Ticker schedules for itself.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent
func MakeTickEvent(handler Handler, t time.Time) TickEvent {
	return TickEvent{EventBase: MakeEventBase(t, handler)}
}

// A Ticker invokes a Tickable at a fixed rate on an engine. Ticks are
// scheduled relative to the previous tick time, so slow handlers do not make
// the ticker drift. A ticker that falls behind fires every missed tick, back
// to back, until it catches up.
type Ticker struct {
	lock     sync.Mutex
	engine   Engine
	interval time.Duration
	target   Tickable
	running  bool
	next     time.Time
}

// NewTicker creates a ticker. It does nothing until Start is called.
func NewTicker(engine Engine, interval time.Duration, target Tickable) *Ticker {
	if interval <= 0 {
		panic("ticker interval must be positive")
	}

	return &Ticker{
		engine:   engine,
		interval: interval,
		target:   target,
	}
}

// Interval returns the tick interval.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Start schedules the first tick one interval from now.
func (t *Ticker) Start() {
	t.StartAfter(t.interval)
}

// StartAfter schedules the first tick after the given delay.
func (t *Ticker) StartAfter(delay time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.running {
		return
	}

	if delay < 0 {
		delay = 0
	}

	t.running = true
	t.next = t.engine.Now().Add(delay)
	t.engine.Schedule(MakeTickEvent(t, t.next))
}

// Stop prevents any further tick. A tick that is already being handled
// completes.
func (t *Ticker) Stop() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.running = false
}

// Running tells if the ticker is started and not stopped.
func (t *Ticker) Running() bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.running
}

// Handle runs one tick and schedules the next one.
func (t *Ticker) Handle(e Event) error {
	t.lock.Lock()
	if !t.running || !e.Time().Equal(t.next) {
		t.lock.Unlock()
		return nil
	}
	t.lock.Unlock()

	t.target.Tick(e.Time())

	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.running {
		return nil
	}

	t.next = e.Time().Add(t.interval)
	t.engine.Schedule(MakeTickEvent(t, t.next))

	return nil
}
