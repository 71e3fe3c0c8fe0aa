// Package simulation holds the services that every component of a run
// shares. A Simulation is built once and handed to component builders; there
// is no process-wide registry.
package simulation

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/sim/id"
	"github.com/sarchlab/slicesim/sim/timing"
)

// A Component is anything registered with the simulation by name.
type Component interface {
	Name() string
}

// A Simulation provides the services required to run a simulation.
type Simulation struct {
	idGenerator id.IDGenerator
	engine      timing.Engine
	metrics     *metrics.Aggregator
	logger      zerolog.Logger

	lock           sync.RWMutex
	components     []Component
	componentIndex map[string]Component
}

// NewSimulation creates a new simulation with a real-time engine on the
// system clock, an empty metrics aggregator and a disabled logger.
func NewSimulation() *Simulation {
	return &Simulation{
		idGenerator:    id.NewParallelIDGenerator(),
		engine:         timing.NewRealTimeEngine(nil),
		metrics:        metrics.NewAggregator(nil),
		logger:         zerolog.Nop(),
		componentIndex: make(map[string]Component),
	}
}

// ID returns the ID of the simulation.
func (s *Simulation) ID() string {
	return "simulation"
}

// RegisterEngine replaces the engine used in the simulation.
func (s *Simulation) RegisterEngine(e timing.Engine) {
	s.engine = e
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() timing.Engine {
	return s.engine
}

// RegisterIDGenerator replaces the ID generator.
func (s *Simulation) RegisterIDGenerator(g id.IDGenerator) {
	s.idGenerator = g
}

// GetIDGenerator returns the ID generator.
func (s *Simulation) GetIDGenerator() id.IDGenerator {
	return s.idGenerator
}

// RegisterMetrics replaces the metrics aggregator.
func (s *Simulation) RegisterMetrics(a *metrics.Aggregator) {
	s.metrics = a
}

// GetMetrics returns the metrics aggregator.
func (s *Simulation) GetMetrics() *metrics.Aggregator {
	return s.metrics
}

// SetLogger sets the root logger.
func (s *Simulation) SetLogger(l zerolog.Logger) {
	s.logger = l
}

// Logger returns a child logger tagged with the component name.
func (s *Simulation) Logger(component string) zerolog.Logger {
	return s.logger.With().Str("component", component).Logger()
}

// RegisterComponent registers a component. Names must be unique.
func (s *Simulation) RegisterComponent(c Component) {
	s.lock.Lock()
	defer s.lock.Unlock()

	name := c.Name()
	if _, ok := s.componentIndex[name]; ok {
		panic(fmt.Sprintf("component %s already registered", name))
	}

	s.componentIndex[name] = c
	s.components = append(s.components, c)
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) Component {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.componentIndex[name]
}

// Components returns the registered components in registration order.
func (s *Simulation) Components() []Component {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make([]Component, len(s.components))
	copy(out, s.components)

	return out
}
