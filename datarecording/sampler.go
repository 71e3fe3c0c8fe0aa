package datarecording

import (
	"time"

	"github.com/sarchlab/slicesim/control"
	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/sim/hooking"
	"github.com/sarchlab/slicesim/sim/simulation"
	"github.com/sarchlab/slicesim/sim/timing"
)

// Tables written by the Sampler.
const (
	MetricSampleTable = "metric_samples"
	SliceSampleTable  = "slice_samples"
	AdjustmentTable   = "bandwidth_adjustments"
)

// MetricSample is a row of the global counters.
type MetricSample struct {
	TimeUnixMs        int64
	PacketsSent       int64
	PacketsReceived   int64
	PacketsDropped    int64
	BytesSent         int64
	BytesReceived     int64
	AverageLatencyMs  float64
	TransformFailures int64
}

// SliceSample is a row of one slice bandwidth.
type SliceSample struct {
	TimeUnixMs   int64
	SliceID      string
	BandwidthBps int64
}

// AdjustmentEntry is a row of one controller decision.
type AdjustmentEntry struct {
	TimeUnixMs       int64
	SliceID          string
	PreviousBps      int64
	CurrentBps       int64
	AverageLatencyMs float64
	Drops            int64
	Increased        bool
}

// A Sampler periodically records the metrics snapshot. Attached as a hook to
// a controller, it also records every bandwidth adjustment.
type Sampler struct {
	name     string
	recorder DataRecorder
	metrics  *metrics.Aggregator
	clock    timing.TimeTeller
	ticker   *timing.Ticker
}

// Name returns the name of the sampler.
func (s *Sampler) Name() string {
	return s.name
}

// Start begins periodic sampling.
func (s *Sampler) Start() {
	s.ticker.Start()
}

// Stop ends periodic sampling and takes a last sample.
func (s *Sampler) Stop() {
	s.ticker.Stop()
	s.Sample(s.clock.Now())
}

// Tick records a sample.
func (s *Sampler) Tick(now time.Time) {
	s.Sample(now)
}

// Sample records the current counters and slice bandwidths.
func (s *Sampler) Sample(now time.Time) {
	snapshot := s.metrics.Snapshot()
	ms := now.UnixMilli()

	s.recorder.InsertData(MetricSampleTable, MetricSample{
		TimeUnixMs:        ms,
		PacketsSent:       snapshot.PacketsSent,
		PacketsReceived:   snapshot.PacketsReceived,
		PacketsDropped:    snapshot.PacketsDropped,
		BytesSent:         snapshot.BytesSent,
		BytesReceived:     snapshot.BytesReceived,
		AverageLatencyMs:  snapshot.AverageLatencyMs,
		TransformFailures: snapshot.TransformFailures,
	})

	for _, sl := range snapshot.Slices {
		s.recorder.InsertData(SliceSampleTable, SliceSample{
			TimeUnixMs:   ms,
			SliceID:      sl.ID,
			BandwidthBps: sl.BandwidthBps,
		})
	}
}

// Func records bandwidth adjustments.
func (s *Sampler) Func(ctx hooking.HookCtx) {
	if ctx.Pos != control.HookPosBandwidthAdjusted {
		return
	}

	adj := ctx.Item.(control.Adjustment)
	s.recorder.InsertData(AdjustmentTable, AdjustmentEntry{
		TimeUnixMs:       adj.Time.UnixMilli(),
		SliceID:          adj.SliceID,
		PreviousBps:      adj.PreviousBps,
		CurrentBps:       adj.CurrentBps,
		AverageLatencyMs: adj.AverageLatencyMs,
		Drops:            adj.Drops,
		Increased:        adj.Increased,
	})
}

// SamplerBuilder can build samplers.
type SamplerBuilder struct {
	sim      *simulation.Simulation
	recorder DataRecorder
	interval time.Duration
}

// MakeSamplerBuilder creates a SamplerBuilder that samples every second.
func MakeSamplerBuilder() SamplerBuilder {
	return SamplerBuilder{interval: time.Second}
}

// WithSimulation sets the simulation to sample.
func (b SamplerBuilder) WithSimulation(sim *simulation.Simulation) SamplerBuilder {
	b.sim = sim
	return b
}

// WithRecorder sets where samples go.
func (b SamplerBuilder) WithRecorder(r DataRecorder) SamplerBuilder {
	b.recorder = r
	return b
}

// WithInterval sets the sampling interval.
func (b SamplerBuilder) WithInterval(d time.Duration) SamplerBuilder {
	b.interval = d
	return b
}

// Build creates the sampler and its tables.
func (b SamplerBuilder) Build(name string) *Sampler {
	if b.sim == nil || b.recorder == nil {
		panic("sampler requires a simulation and a recorder")
	}

	s := &Sampler{
		name:     name,
		recorder: b.recorder,
		metrics:  b.sim.GetMetrics(),
		clock:    b.sim.GetEngine(),
	}
	s.ticker = timing.NewTicker(b.sim.GetEngine(), b.interval, s)

	b.recorder.CreateTable(MetricSampleTable, MetricSample{})
	b.recorder.CreateTable(SliceSampleTable, SliceSample{})
	b.recorder.CreateTable(AdjustmentTable, AdjustmentEntry{})

	b.sim.RegisterComponent(s)

	return s
}
