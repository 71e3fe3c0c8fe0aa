package traffic

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/ran"
	"github.com/sarchlab/slicesim/sim/simulation"
	"github.com/sarchlab/slicesim/sim/timing"
)

// ErrPatternNotAllowed is returned when a node may not send on the band and
// slice of a pattern.
var ErrPatternNotAllowed = errors.New("pattern not allowed for node")

// A Pattern is one periodic flow of messages from a node.
type Pattern struct {
	Band       ran.Band
	SliceID    string
	Kind       string
	To         string
	Payload    PayloadFunc
	Bytes      int
	StartAfter time.Duration
	Interval   time.Duration
}

// A Generator drives the patterns of one node. Each pattern has its own
// ticker on the engine.
type Generator struct {
	name     string
	node     *ran.Node
	engine   timing.Engine
	logger   zerolog.Logger
	flows    []*flow
	started  atomic.Bool
	attempts atomic.Int64
	failures atomic.Int64
}

type flow struct {
	gen     *Generator
	pattern Pattern
	ticker  *timing.Ticker
}

func (f *flow) Tick(now time.Time) {
	f.gen.emit(f.pattern, now)
}

// Name returns the name of the generator.
func (g *Generator) Name() string {
	return g.name
}

// Node returns the node the generator sends from.
func (g *Generator) Node() *ran.Node {
	return g.node
}

// Patterns returns the patterns of the generator.
func (g *Generator) Patterns() []Pattern {
	out := make([]Pattern, 0, len(g.flows))
	for _, f := range g.flows {
		out = append(out, f.pattern)
	}

	return out
}

// Attempts returns the number of messages the generator tried to send.
func (g *Generator) Attempts() int64 {
	return g.attempts.Load()
}

// Failures returns the number of sends that returned an error.
func (g *Generator) Failures() int64 {
	return g.failures.Load()
}

// Start schedules the first message of every pattern after its start delay.
func (g *Generator) Start() {
	if g.started.Swap(true) {
		return
	}

	for _, f := range g.flows {
		f.ticker.StartAfter(f.pattern.StartAfter)
	}
}

// Stop stops every pattern.
func (g *Generator) Stop() {
	for _, f := range g.flows {
		f.ticker.Stop()
	}
}

func (g *Generator) emit(p Pattern, now time.Time) {
	g.attempts.Add(1)

	err := g.node.Send(p.Band, ran.PlainMessage{
		To:      p.To,
		SliceID: p.SliceID,
		Kind:    p.Kind,
		Body:    p.Payload(p.Bytes, now),
	})
	if err != nil {
		g.failures.Add(1)
		g.logger.Warn().Err(err).
			Str("to", p.To).
			Str("slice", p.SliceID).
			Msg("send failed")
	}
}

// GeneratorBuilder can build generators.
type GeneratorBuilder struct {
	sim      *simulation.Simulation
	node     *ran.Node
	patterns []Pattern
}

// MakeGeneratorBuilder creates a GeneratorBuilder.
func MakeGeneratorBuilder() GeneratorBuilder {
	return GeneratorBuilder{}
}

// WithSimulation sets the simulation the generator runs in.
func (b GeneratorBuilder) WithSimulation(sim *simulation.Simulation) GeneratorBuilder {
	b.sim = sim
	return b
}

// WithNode sets the node that sends the traffic.
func (b GeneratorBuilder) WithNode(n *ran.Node) GeneratorBuilder {
	b.node = n
	return b
}

// WithPatterns sets the patterns to drive.
func (b GeneratorBuilder) WithPatterns(patterns ...Pattern) GeneratorBuilder {
	b.patterns = append([]Pattern(nil), patterns...)
	return b
}

// Build creates a generator and registers it with the simulation. It fails if
// the node may not send on a pattern or if a pattern is malformed.
func (b GeneratorBuilder) Build(name string) (*Generator, error) {
	if b.sim == nil || b.node == nil {
		panic("generator requires a simulation and a node")
	}

	g := &Generator{
		name:   name,
		node:   b.node,
		engine: b.sim.GetEngine(),
		logger: b.sim.Logger(name),
	}

	for i, p := range b.patterns {
		if err := b.check(p); err != nil {
			return nil, fmt.Errorf("%s pattern %d: %w", name, i, err)
		}

		if p.Payload == nil {
			p.Payload = Padding
		}

		f := &flow{gen: g, pattern: p}
		f.ticker = timing.NewTicker(g.engine, p.Interval, f)
		g.flows = append(g.flows, f)
	}

	b.sim.RegisterComponent(g)

	return g, nil
}

func (b GeneratorBuilder) check(p Pattern) error {
	switch {
	case !b.node.Allows(p.Band, p.SliceID):
		return fmt.Errorf("%w: %s on %s/%s",
			ErrPatternNotAllowed, b.node.Name(), p.Band, p.SliceID)
	case p.Interval <= 0:
		return errors.New("interval must be positive")
	case p.StartAfter < 0:
		return errors.New("start delay must not be negative")
	case p.Bytes < 0:
		return errors.New("size must not be negative")
	case p.To == "":
		return errors.New("destination is empty")
	}

	return nil
}
