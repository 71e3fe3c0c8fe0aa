package ran

import (
	"sync"
	"time"
)

// inbox is an unbounded FIFO queue with many producers and one consumer.
// Producers never block.
type inbox struct {
	lock   sync.Mutex
	items  []*SealedMessage
	notify chan struct{}
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1)}
}

func (q *inbox) push(m *SealedMessage) {
	q.lock.Lock()
	q.items = append(q.items, m)
	q.lock.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *inbox) tryPop() (*SealedMessage, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	m := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	return m, true
}

// pop waits up to timeout for a message. It returns early with false when
// stop is closed.
func (q *inbox) pop(timeout time.Duration, stop <-chan struct{}) (*SealedMessage, bool) {
	var timer *time.Timer

	for {
		if m, ok := q.tryPop(); ok {
			if timer != nil {
				timer.Stop()
			}

			return m, true
		}

		if timer == nil {
			timer = time.NewTimer(timeout)
			defer timer.Stop()
		}

		select {
		case <-q.notify:
		case <-timer.C:
			return nil, false
		case <-stop:
			return nil, false
		}
	}
}

func (q *inbox) len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.items)
}
