package ran

import (
	"time"

	"github.com/sarchlab/slicesim/sim/simulation"
	"github.com/sarchlab/slicesim/sim/timing"
)

// ChannelBuilder can build channels.
type ChannelBuilder struct {
	sim            *simulation.Simulation
	ticksPerSecond int
	seed           uint64
}

// MakeChannelBuilder creates a ChannelBuilder with default parameters.
func MakeChannelBuilder() ChannelBuilder {
	return ChannelBuilder{
		ticksPerSecond: 20,
		seed:           1,
	}
}

// WithSimulation sets the simulation the channel runs in.
func (b ChannelBuilder) WithSimulation(sim *simulation.Simulation) ChannelBuilder {
	b.sim = sim
	return b
}

// WithTicksPerSecond sets how often the token buckets are replenished.
func (b ChannelBuilder) WithTicksPerSecond(n int) ChannelBuilder {
	b.ticksPerSecond = n
	return b
}

// WithSeed sets the seed of the jitter distribution.
func (b ChannelBuilder) WithSeed(seed uint64) ChannelBuilder {
	b.seed = seed
	return b
}

// Build creates a channel, registers it with the simulation and starts its
// replenishment ticker. The channel has no band configured.
func (b ChannelBuilder) Build(name string) *Channel {
	if b.sim == nil {
		panic("channel requires a simulation")
	}

	if b.ticksPerSecond <= 0 {
		panic("ticks per second must be positive")
	}

	c := &Channel{
		name:           name,
		engine:         b.sim.GetEngine(),
		metrics:        b.sim.GetMetrics(),
		slices:         b.sim.GetMetrics().Slices(),
		logger:         b.sim.Logger(name),
		ticksPerSecond: b.ticksPerSecond,
		random:         newChannelRandom(name, b.seed),
		profiles:       make(map[Band]BandProfile),
		buckets:        make(map[string]*TokenBucket),
	}
	c.open.Store(true)

	interval := time.Second / time.Duration(b.ticksPerSecond)
	c.replenisher = timing.NewTicker(c.engine, interval, c)
	c.replenisher.Start()

	b.sim.RegisterComponent(c)

	return c
}
