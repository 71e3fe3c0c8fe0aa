package timing

import (
	"container/heap"
)

type queuedEvent struct {
	evt Event
	seq uint64
}

// eventHeap orders events by time. Events with the same time keep the order
// in which they were scheduled.
type eventHeap []queuedEvent

// Len returns the length of the event queue
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	ti, tj := h[i].evt.Time(), h[j].evt.Time()
	if ti.Equal(tj) {
		return h[i].seq < h[j].seq
	}

	return ti.Before(tj)
}

// Swap changes the position of two events in the event queue
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue
func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(queuedEvent))
}

// Pop removes and returns the next event to happen
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	event := old[n-1]
	old[n-1] = queuedEvent{}
	*h = old[0 : n-1]

	return event
}

// eventQueue is a time-ordered queue. It is not safe for concurrent use; the
// engine guards it.
type eventQueue struct {
	events  eventHeap
	nextSeq uint64
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	heap.Init(&q.events)

	return q
}

func (q *eventQueue) Push(evt Event) {
	q.nextSeq++
	heap.Push(&q.events, queuedEvent{evt: evt, seq: q.nextSeq})
}

func (q *eventQueue) Pop() Event {
	return heap.Pop(&q.events).(queuedEvent).evt
}

func (q *eventQueue) Peek() Event {
	if len(q.events) == 0 {
		return nil
	}

	return q.events[0].evt
}

func (q *eventQueue) Len() int {
	return len(q.events)
}

func (q *eventQueue) Clear() {
	q.events = nil
}
