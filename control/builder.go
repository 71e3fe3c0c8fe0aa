package control

import (
	"time"

	"github.com/sarchlab/slicesim/sim/simulation"
	"github.com/sarchlab/slicesim/sim/timing"
)

// Builder can build controllers.
type Builder struct {
	sim    *simulation.Simulation
	config Config
}

// MakeBuilder creates a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{config: DefaultConfig()}
}

// WithSimulation sets the simulation the controller runs in.
func (b Builder) WithSimulation(sim *simulation.Simulation) Builder {
	b.sim = sim
	return b
}

// WithConfig sets the controller tuning.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// Build creates a controller and registers it with the simulation. It panics
// on an invalid configuration.
func (b Builder) Build(name string) *Controller {
	if b.sim == nil {
		panic("controller requires a simulation")
	}

	if err := b.config.Validate(); err != nil {
		panic(err)
	}

	c := &Controller{
		name:    name,
		config:  b.config,
		engine:  b.sim.GetEngine(),
		metrics: b.sim.GetMetrics(),
		logger:  b.sim.Logger(name),
	}
	c.ticker = timing.NewTicker(c.engine, b.config.Interval,
		timing.TickFunc(func(time.Time) { c.Adjust() }))

	b.sim.RegisterComponent(c)

	return c
}
