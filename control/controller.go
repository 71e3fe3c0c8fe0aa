// Package control provides the bandwidth controller that grows congested
// slices and decays idle ones.
package control

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/sim/hooking"
	"github.com/sarchlab/slicesim/sim/timing"
)

// HookPosBandwidthAdjusted marks a bandwidth change. The hook item is the
// Adjustment.
var HookPosBandwidthAdjusted = &hooking.HookPos{Name: "BandwidthAdjusted"}

// An Adjustment records one bandwidth change.
type Adjustment struct {
	Time             time.Time `json:"time"`
	SliceID          string    `json:"slice_id"`
	PreviousBps      int64     `json:"previous_bps"`
	CurrentBps       int64     `json:"current_bps"`
	AverageLatencyMs float64   `json:"avg_latency_ms"`
	Drops            int64     `json:"drops"`
	Increased        bool      `json:"increased"`
}

// A Controller periodically rewrites the bandwidth of every slice. A slice
// whose latency target is missed, or any drop at all, makes it grow:
//
//	next = min(bw + max(floorStep, bw/8), bw + maxStep)
//
// Otherwise the bandwidth decays towards the minimum:
//
//	next = max(minBandwidth, bw * decay)
//
// The controller is the only writer of slice bandwidth.
type Controller struct {
	hooking.HookableBase

	name    string
	config  Config
	engine  timing.Engine
	metrics *metrics.Aggregator
	logger  zerolog.Logger
	ticker  *timing.Ticker

	lock             sync.Mutex
	lastLatencySum   int64
	lastLatencyCount int64
	lastDrops        int64

	closed atomic.Bool
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Config returns the controller tuning.
func (c *Controller) Config() Config {
	return c.config
}

// Start schedules the periodic adjustments. The first one happens one
// interval from now.
func (c *Controller) Start() {
	if c.closed.Load() {
		return
	}

	c.ticker.Start()
}

// Close stops the periodic adjustments.
func (c *Controller) Close() {
	if c.closed.Swap(true) {
		return
	}

	c.ticker.Stop()
}

// Adjust runs one control step over every slice and returns the changes it
// made. Slices whose bandwidth stays the same are not reported.
func (c *Controller) Adjust() []Adjustment {
	if c.closed.Load() {
		return nil
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	avgLatency, drops := c.signal()
	now := c.engine.Now()

	var adjustments []Adjustment

	for _, s := range c.metrics.Slices().List() {
		bw := s.Bandwidth()
		needMore := avgLatency > s.TargetLatencyMs || drops > 0

		var next int64
		if needMore {
			next = c.increase(bw)
		} else {
			next = c.decay(bw)
		}

		if next == bw {
			continue
		}

		s.SetBandwidth(next)

		adj := Adjustment{
			Time:             now,
			SliceID:          s.ID,
			PreviousBps:      bw,
			CurrentBps:       next,
			AverageLatencyMs: avgLatency,
			Drops:            drops,
			Increased:        next > bw,
		}
		adjustments = append(adjustments, adj)

		c.logger.Info().
			Str("slice", s.ID).
			Int64("bw_bps", next).
			Float64("avg_latency_ms", avgLatency).
			Int64("drops", drops).
			Msg("bandwidth adjusted")

		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosBandwidthAdjusted,
			Item:   adj,
		})
	}

	return adjustments
}

func (c *Controller) signal() (avgLatencyMs float64, drops int64) {
	sum, count := c.metrics.LatencyTotals()
	dropped := c.metrics.PacketsDropped()

	if c.config.Signal == SignalCumulative {
		return metrics.AverageMs(sum, count), dropped
	}

	avgLatencyMs = metrics.AverageMs(sum-c.lastLatencySum, count-c.lastLatencyCount)
	drops = dropped - c.lastDrops

	c.lastLatencySum = sum
	c.lastLatencyCount = count
	c.lastDrops = dropped

	return avgLatencyMs, drops
}

func (c *Controller) increase(bw int64) int64 {
	step := bw / 8
	if step < c.config.FloorStepBps {
		step = c.config.FloorStepBps
	}

	if step > c.config.MaxStepBps {
		step = c.config.MaxStepBps
	}

	next := bw + step
	if c.config.MaxBandwidthBps > 0 && next > c.config.MaxBandwidthBps {
		next = c.config.MaxBandwidthBps
	}

	return next
}

func (c *Controller) decay(bw int64) int64 {
	next := int64(math.Floor(float64(bw) * c.config.DecayFactor))
	if next < c.config.MinBandwidthBps {
		next = c.config.MinBandwidthBps
	}

	return next
}
