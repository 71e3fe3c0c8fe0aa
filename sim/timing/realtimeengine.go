package timing

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sarchlab/slicesim/sim/hooking"
)

// A RealTimeEngine fires events when the wall clock reaches their time. A
// single dispatcher goroutine runs every handler, so handlers never race with
// each other.
type RealTimeEngine struct {
	hooking.HookableBase

	clock clock.Clock

	queueLock sync.Mutex
	queue     *eventQueue

	wakeup  chan struct{}
	done    chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	closed    atomic.Bool
}

// NewRealTimeEngine creates an engine driven by the given clock. Passing nil
// uses the system clock.
func NewRealTimeEngine(clk clock.Clock) *RealTimeEngine {
	if clk == nil {
		clk = clock.New()
	}

	e := &RealTimeEngine{
		clock:   clk,
		queue:   newEventQueue(),
		wakeup:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	return e
}

// Now returns the current time of the engine clock.
func (e *RealTimeEngine) Now() time.Time {
	return e.clock.Now()
}

// Clock returns the clock that drives the engine.
func (e *RealTimeEngine) Clock() clock.Clock {
	return e.clock
}

// Schedule registers an event to happen in the future. Events scheduled after
// Close are ignored.
func (e *RealTimeEngine) Schedule(evt Event) {
	if e.closed.Load() {
		return
	}

	e.queueLock.Lock()
	e.queue.Push(evt)
	e.queueLock.Unlock()

	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

// Pending returns the number of events that have not fired yet.
func (e *RealTimeEngine) Pending() int {
	e.queueLock.Lock()
	defer e.queueLock.Unlock()

	return e.queue.Len()
}

// Start launches the dispatcher goroutine.
func (e *RealTimeEngine) Start() {
	e.startOnce.Do(func() {
		if e.closed.Load() {
			return
		}

		e.started.Store(true)

		go e.run()
	})
}

// Closed tells if the engine has been closed.
func (e *RealTimeEngine) Closed() bool {
	return e.closed.Load()
}

// Close stops the dispatcher. Pending events are dropped without firing.
func (e *RealTimeEngine) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)

		if e.started.Load() {
			<-e.stopped
		}

		e.queueLock.Lock()
		e.queue.Clear()
		e.queueLock.Unlock()
	})
}

func (e *RealTimeEngine) run() {
	defer close(e.stopped)

	for {
		e.fireDueEvents()

		var (
			timer *clock.Timer
			fire  <-chan time.Time
		)

		if next, ok := e.nextEventTime(); ok {
			wait := next.Sub(e.clock.Now())
			if wait <= 0 {
				continue
			}

			timer = e.clock.Timer(wait)
			fire = timer.C
		}

		select {
		case <-e.done:
			stopTimer(timer)
			return
		case <-e.wakeup:
		case <-fire:
		}

		stopTimer(timer)
	}
}

func stopTimer(t *clock.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (e *RealTimeEngine) nextEventTime() (time.Time, bool) {
	e.queueLock.Lock()
	defer e.queueLock.Unlock()

	next := e.queue.Peek()
	if next == nil {
		return time.Time{}, false
	}

	return next.Time(), true
}

func (e *RealTimeEngine) fireDueEvents() {
	for !e.closed.Load() {
		evt := e.popDueEvent(e.clock.Now())
		if evt == nil {
			return
		}

		e.dispatch(evt)
	}
}

func (e *RealTimeEngine) popDueEvent(now time.Time) Event {
	e.queueLock.Lock()
	defer e.queueLock.Unlock()

	next := e.queue.Peek()
	if next == nil || next.Time().After(now) {
		return nil
	}

	return e.queue.Pop()
}

func (e *RealTimeEngine) dispatch(evt Event) {
	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	err := evt.Handler().Handle(evt)

	hookCtx.Pos = HookPosAfterEvent
	hookCtx.Detail = err
	e.InvokeHook(hookCtx)
}
