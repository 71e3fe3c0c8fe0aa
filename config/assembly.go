package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/control"
	"github.com/sarchlab/slicesim/datarecording"
	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/monitoring"
	"github.com/sarchlab/slicesim/ran"
	"github.com/sarchlab/slicesim/sim/simulation"
	"github.com/sarchlab/slicesim/sim/timing"
	"github.com/sarchlab/slicesim/slicing"
	"github.com/sarchlab/slicesim/traffic"
	"github.com/sarchlab/slicesim/transform"
)

// An Assembly is a scenario wired into components that are ready to start.
type Assembly struct {
	Scenario   *Scenario
	Simulation *simulation.Simulation
	Channel    *ran.Channel
	Directory  *ran.NodeDirectory
	Transform  ran.Transform
	Controller *control.Controller
	Nodes      []*ran.Node
	Generators []*traffic.Generator
	Tracer     *ran.SliceTracer

	// Monitor is nil unless monitoring is enabled.
	Monitor *monitoring.Monitor

	// Recorder and Sampler are nil unless recording is enabled.
	Recorder datarecording.DataRecorder
	Sampler  *datarecording.Sampler

	logger      zerolog.Logger
	monitorAddr string
	closeOnce   sync.Once
	closeErr    error
}

// Build validates the scenario and wires it on a real-time engine driven by
// the system clock.
func Build(s *Scenario, logger zerolog.Logger) (*Assembly, error) {
	return BuildWithEngine(s, logger, timing.NewRealTimeEngine(nil))
}

// BuildWithEngine validates the scenario and wires it on the given engine.
func BuildWithEngine(
	s *Scenario,
	logger zerolog.Logger,
	engine timing.Engine,
) (*Assembly, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sim := simulation.NewSimulation()
	sim.RegisterEngine(engine)
	sim.RegisterMetrics(metrics.NewAggregator(slicing.NewTable()))
	sim.SetLogger(logger)

	if logger.GetLevel() <= zerolog.TraceLevel {
		engine.AcceptHook(timing.NewEventLogger(sim.Logger("Engine")))
	}

	a := &Assembly{
		Scenario:   s,
		Simulation: sim,
		Directory:  ran.NewNodeDirectory(),
		Tracer:     ran.NewSliceTracer("SliceTracer"),
		logger:     logger,
	}
	sim.RegisterComponent(a.Tracer)

	steps := []func() error{
		a.buildChannel,
		a.buildTransform,
		a.buildNodes,
		a.buildController,
		a.buildGenerators,
		a.buildRecorder,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			a.release()
			return nil, err
		}
	}

	if s.Monitoring.Enabled {
		a.Monitor = monitoring.NewMonitor(sim).
			WithPortNumber(s.Monitoring.Port).
			WithSliceTracer(a.Tracer)
	}

	return a, nil
}

func (a *Assembly) buildChannel() error {
	s := a.Scenario

	a.Channel = ran.MakeChannelBuilder().
		WithSimulation(a.Simulation).
		WithTicksPerSecond(s.TicksPerSecond).
		WithSeed(s.Seed).
		Build("Channel")
	a.Channel.AcceptHook(a.Tracer)

	for name, entry := range s.Bands {
		band, err := ran.ParseBand(name)
		if err != nil {
			return err
		}

		if err := a.Channel.Config(band, entry.Profile()); err != nil {
			return err
		}
	}

	for _, entry := range s.Slices {
		a.Channel.RegisterSlice(slicing.NewSlice(entry.ID, entry.Description,
			entry.BandwidthBps, entry.BucketBytes, entry.TargetLatencyMs))
	}

	return nil
}

func (a *Assembly) buildTransform() error {
	t, err := transform.New(a.Scenario.Transform)
	if err != nil {
		return err
	}

	a.Transform = t
	a.logger.Info().Str("transform", t.Name()).Msg("transform selected")

	return nil
}

func (a *Assembly) buildNodes() error {
	for _, entry := range a.Scenario.Nodes {
		patterns := make([]ran.Pattern, 0, len(entry.Allow))

		for _, allow := range entry.Allow {
			band, err := ran.ParseBand(allow.Band)
			if err != nil {
				return err
			}

			patterns = append(patterns, ran.Pattern{Band: band, SliceID: allow.Slice})
		}

		node := ran.MakeNodeBuilder().
			WithSimulation(a.Simulation).
			WithDirectory(a.Directory).
			WithChannel(a.Channel).
			WithTransform(a.Transform).
			WithPollInterval(entry.PollInterval).
			WithPatterns(patterns...).
			Build(entry.Name)
		node.AcceptHook(a.Tracer)

		if err := a.Directory.Register(node); err != nil {
			return err
		}

		a.Nodes = append(a.Nodes, node)
	}

	return nil
}

func (a *Assembly) buildController() error {
	cfg, err := a.Scenario.Controller.ControlConfig()
	if err != nil {
		return err
	}

	a.Controller = control.MakeBuilder().
		WithSimulation(a.Simulation).
		WithConfig(cfg).
		Build("Controller")

	return nil
}

func (a *Assembly) buildGenerators() error {
	for _, entry := range a.Scenario.Nodes {
		if len(entry.Traffic) == 0 {
			continue
		}

		node, _ := a.Directory.Node(entry.Name)

		patterns := make([]traffic.Pattern, 0, len(entry.Traffic))
		for _, t := range entry.Traffic {
			p, err := trafficPattern(t)
			if err != nil {
				return fmt.Errorf("node %s: %w", entry.Name, err)
			}

			patterns = append(patterns, p)
		}

		gen, err := traffic.MakeGeneratorBuilder().
			WithSimulation(a.Simulation).
			WithNode(node).
			WithPatterns(patterns...).
			Build(entry.Name + ".Traffic")
		if err != nil {
			return err
		}

		a.Generators = append(a.Generators, gen)
	}

	return nil
}

func trafficPattern(t TrafficSpec) (traffic.Pattern, error) {
	band, err := ran.ParseBand(t.Band)
	if err != nil {
		return traffic.Pattern{}, err
	}

	payload := traffic.Padding

	name := t.Payload
	if name == "" {
		name = t.Kind
	}

	if fn, err := traffic.PayloadByName(name); err == nil {
		payload = fn
	} else if t.Payload != "" {
		return traffic.Pattern{}, err
	}

	return traffic.Pattern{
		Band:       band,
		SliceID:    t.Slice,
		Kind:       t.Kind,
		To:         t.To,
		Payload:    payload,
		Bytes:      t.Bytes,
		StartAfter: t.StartAfter,
		Interval:   t.Interval,
	}, nil
}

func (a *Assembly) buildRecorder() error {
	rec := a.Scenario.Recording
	if !rec.Enabled {
		return nil
	}

	recorder, err := datarecording.New(rec.Path)
	if err != nil {
		return err
	}

	a.Recorder = recorder
	a.Sampler = datarecording.MakeSamplerBuilder().
		WithSimulation(a.Simulation).
		WithRecorder(recorder).
		WithInterval(rec.Interval).
		Build("Sampler")
	a.Controller.AcceptHook(a.Sampler)

	return nil
}

// release frees what a failed build already acquired.
func (a *Assembly) release() {
	if a.Channel != nil {
		a.Channel.Close()
	}

	a.Simulation.GetEngine().Close()

	if a.Recorder != nil {
		a.Recorder.Close()
	}
}

// Start launches the engine, the node consumers, the controller, the traffic
// generators and, when configured, the sampler and the monitor.
func (a *Assembly) Start() error {
	a.Simulation.GetEngine().Start()

	for _, n := range a.Nodes {
		n.Start()
	}

	a.Controller.Start()

	for _, g := range a.Generators {
		g.Start()
	}

	if a.Sampler != nil {
		a.Sampler.Start()
	}

	if a.Monitor != nil {
		addr, err := a.Monitor.StartServer()
		if err != nil {
			return fmt.Errorf("failed to start monitor: %w", err)
		}

		a.monitorAddr = addr
	}

	a.logger.Info().
		Str("scenario", a.Scenario.Name).
		Int("nodes", len(a.Nodes)).
		Int("slices", len(a.Scenario.Slices)).
		Msg("simulation started")

	return nil
}

// MonitorAddress returns the address of the monitor, or an empty string when
// it does not run.
func (a *Assembly) MonitorAddress() string {
	return a.monitorAddr
}

// Snapshot returns the current metrics.
func (a *Assembly) Snapshot() metrics.Snapshot {
	return a.Simulation.GetMetrics().Snapshot()
}

// Close shuts everything down: generators, controller, nodes, channel,
// engine, monitor and recorder, in that order. It waits up to the given time
// for the node consumers to exit and logs the final metrics. Later calls
// return the first result.
func (a *Assembly) Close(wait time.Duration) error {
	a.closeOnce.Do(func() {
		a.closeErr = a.close(wait)
	})

	return a.closeErr
}

func (a *Assembly) close(wait time.Duration) error {
	var errs []error

	for _, g := range a.Generators {
		g.Stop()
	}

	a.Controller.Close()

	for _, n := range a.Nodes {
		n.Close()
	}

	a.waitForNodes(wait)

	a.Channel.Close()
	a.Simulation.GetEngine().Close()

	if a.Monitor != nil {
		errs = append(errs, a.Monitor.Close())
	}

	if a.Sampler != nil {
		a.Sampler.Stop()
	}

	if a.Recorder != nil {
		errs = append(errs, a.Recorder.Close())
	}

	for _, st := range a.Tracer.Stats() {
		a.logger.Info().
			Str("slice", st.SliceID).
			Uint64("received", st.Received).
			Float64("avg_latency_ms", st.AverageLatencyMs).
			Float64("max_latency_ms", st.MaxLatencyMs).
			Interface("drops", st.DropsByReason).
			Msg("slice summary")
	}

	a.logger.Info().
		Str("metrics", a.Snapshot().String()).
		Msg("final metrics")

	return errors.Join(errs...)
}

func (a *Assembly) waitForNodes(wait time.Duration) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for _, n := range a.Nodes {
		select {
		case <-n.Done():
		case <-deadline.C:
			a.logger.Warn().Str("node", n.Name()).Msg("node did not stop in time")
			return
		}
	}
}
