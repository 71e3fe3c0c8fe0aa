package ran

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/sim/hooking"
	"github.com/sarchlab/slicesim/sim/id"
	"github.com/sarchlab/slicesim/sim/timing"
)

// HookPosNodeSend marks a message handed to the channel. The hook item is the
// sealed message and the detail is the band.
var HookPosNodeSend = &hooking.HookPos{Name: "NodeSend"}

// HookPosNodeRecv marks a message opened by the receiver. The hook item is the
// plaintext message and the detail is the latency.
var HookPosNodeRecv = &hooking.HookPos{Name: "NodeRecv"}

// A Pattern is a (band, slice) combination that a node is allowed to send on.
type Pattern struct {
	Band    Band
	SliceID string
}

// A Node is an endpoint of the network. It seals and sends messages, and it
// runs one consumer goroutine that opens the messages in its inbox in arrival
// order and passes them to its handler.
type Node struct {
	hooking.HookableBase

	name         string
	directory    Directory
	channel      Transmitter
	transform    Transform
	handler      MessageHandler
	metrics      *metrics.Aggregator
	timeTeller   timing.TimeTeller
	idGenerator  id.IDGenerator
	logger       zerolog.Logger
	pollInterval time.Duration
	patterns     []Pattern

	inbox *inbox

	running   atomic.Bool
	closed    atomic.Bool
	started   atomic.Bool
	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// Name returns the name of the node.
func (n *Node) Name() string {
	return n.name
}

// Patterns returns the (band, slice) patterns the node may send on. An empty
// list allows everything.
func (n *Node) Patterns() []Pattern {
	out := make([]Pattern, len(n.patterns))
	copy(out, n.patterns)

	return out
}

// Allows tells if the node may send on the band and slice.
func (n *Node) Allows(band Band, sliceID string) bool {
	if len(n.patterns) == 0 {
		return true
	}

	for _, p := range n.patterns {
		if p.Band == band && p.SliceID == sliceID {
			return true
		}
	}

	return false
}

// Send seals a message and hands it to the channel. The only error is
// ErrUnknownDestination, in which case nothing is counted or transmitted.
// A message that cannot be sealed is logged and discarded.
func (n *Node) Send(band Band, m PlainMessage) error {
	if m.From == "" {
		m.From = n.name
	}

	dst, ok := n.directory.Lookup(m.To)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, m.To)
	}

	sealed, err := n.transform.Seal(m)
	if err != nil {
		n.metrics.OnTransformFailure()
		n.logger.Warn().
			Err(fmt.Errorf("%w: %w", ErrTransformFailure, err)).
			Str("to", m.To).
			Msg("seal failed")

		return nil
	}

	sealed.ID = n.idGenerator.Generate()
	sealed.CreatedAt = n.timeTeller.Now()

	n.metrics.OnSend(len(m.Body))

	n.InvokeHook(hooking.HookCtx{
		Domain: n,
		Pos:    HookPosNodeSend,
		Item:   sealed,
		Detail: band,
	})

	n.channel.Transmit(band, sealed, dst)

	return nil
}

// Deliver puts a message in the inbox. It never blocks. Messages delivered to
// a closed node are discarded.
func (n *Node) Deliver(m *SealedMessage) {
	if n.closed.Load() {
		return
	}

	n.inbox.push(m)
}

// InboxSize returns the number of messages waiting to be processed.
func (n *Node) InboxSize() int {
	return n.inbox.len()
}

// Start launches the consumer goroutine. Only the first call has an effect,
// and a closed node cannot be started.
func (n *Node) Start() {
	n.startOnce.Do(func() {
		if n.closed.Load() {
			return
		}

		n.started.Store(true)
		n.running.Store(true)

		go n.run()
	})
}

// Close stops the consumer. Messages still in the inbox are not processed.
// Close does not wait; use Done for that.
func (n *Node) Close() {
	n.closeOnce.Do(func() {
		n.closed.Store(true)
		n.running.Store(false)
		close(n.stop)

		n.startOnce.Do(func() {})
		if !n.started.Load() {
			close(n.done)
		}
	})
}

// Done is closed when the consumer goroutine has exited.
func (n *Node) Done() <-chan struct{} {
	return n.done
}

func (n *Node) run() {
	defer close(n.done)

	for n.running.Load() {
		m, ok := n.inbox.pop(n.pollInterval, n.stop)
		if !ok {
			continue
		}

		n.process(m)
	}
}

func (n *Node) process(m *SealedMessage) {
	latency := n.timeTeller.Now().Sub(m.CreatedAt)

	plain, err := n.transform.Open(m)
	if err != nil {
		n.metrics.OnTransformFailure()
		n.logger.Warn().
			Err(fmt.Errorf("%w: %w", ErrTransformFailure, err)).
			Str("msg", m.ID).
			Str("from", m.From).
			Msg("open failed")

		return
	}

	n.metrics.OnReceive(m.PlainSize, latency)

	n.InvokeHook(hooking.HookCtx{
		Domain: n,
		Pos:    HookPosNodeRecv,
		Item:   plain,
		Detail: latency,
	})

	n.handler.HandleMessage(n, plain, latency)
}
