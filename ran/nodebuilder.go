package ran

import (
	"time"

	"github.com/sarchlab/slicesim/sim/simulation"
)

// NodeBuilder can build nodes.
type NodeBuilder struct {
	sim          *simulation.Simulation
	directory    Directory
	channel      Transmitter
	transform    Transform
	handler      MessageHandler
	pollInterval time.Duration
	patterns     []Pattern
}

// MakeNodeBuilder creates a NodeBuilder with default parameters.
func MakeNodeBuilder() NodeBuilder {
	return NodeBuilder{
		handler:      LogHandler{},
		pollInterval: 100 * time.Millisecond,
	}
}

// WithSimulation sets the simulation the node runs in.
func (b NodeBuilder) WithSimulation(sim *simulation.Simulation) NodeBuilder {
	b.sim = sim
	return b
}

// WithDirectory sets the directory used to resolve destinations.
func (b NodeBuilder) WithDirectory(d Directory) NodeBuilder {
	b.directory = d
	return b
}

// WithChannel sets the channel the node sends on.
func (b NodeBuilder) WithChannel(c Transmitter) NodeBuilder {
	b.channel = c
	return b
}

// WithTransform sets the confidentiality transform.
func (b NodeBuilder) WithTransform(t Transform) NodeBuilder {
	b.transform = t
	return b
}

// WithHandler sets the handler of received messages.
func (b NodeBuilder) WithHandler(h MessageHandler) NodeBuilder {
	b.handler = h
	return b
}

// WithPollInterval sets how long the consumer waits for a message before it
// checks whether it should stop.
func (b NodeBuilder) WithPollInterval(d time.Duration) NodeBuilder {
	b.pollInterval = d
	return b
}

// WithPatterns sets the (band, slice) patterns the node may send on.
func (b NodeBuilder) WithPatterns(patterns ...Pattern) NodeBuilder {
	b.patterns = append([]Pattern(nil), patterns...)
	return b
}

// Build creates a node and registers it with the simulation. The node does
// not consume its inbox until Start is called.
func (b NodeBuilder) Build(name string) *Node {
	b.mustBeValid()

	n := &Node{
		name:         name,
		directory:    b.directory,
		channel:      b.channel,
		transform:    b.transform,
		handler:      b.handler,
		metrics:      b.sim.GetMetrics(),
		timeTeller:   b.sim.GetEngine(),
		idGenerator:  b.sim.GetIDGenerator(),
		logger:       b.sim.Logger(name),
		pollInterval: b.pollInterval,
		patterns:     b.patterns,
		inbox:        newInbox(),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	b.sim.RegisterComponent(n)

	return n
}

func (b NodeBuilder) mustBeValid() {
	switch {
	case b.sim == nil:
		panic("node requires a simulation")
	case b.directory == nil:
		panic("node requires a directory")
	case b.channel == nil:
		panic("node requires a channel")
	case b.transform == nil:
		panic("node requires a transform")
	case b.handler == nil:
		panic("node requires a handler")
	case b.pollInterval <= 0:
		panic("poll interval must be positive")
	}
}
