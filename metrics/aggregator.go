// Package metrics aggregates the counters that every component of the
// simulation writes and that exporters read.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sarchlab/slicesim/slicing"
)

// DropReason tells why the channel dropped a message.
type DropReason int

// The reasons for a drop. They are modeled outcomes, not errors.
const (
	DropNoBand DropReason = iota
	DropLoss
	DropUnknownSlice
	DropCongestion
	numDropReasons
)

// DropReasons lists every drop reason.
var DropReasons = []DropReason{
	DropNoBand, DropLoss, DropUnknownSlice, DropCongestion,
}

func (r DropReason) String() string {
	switch r {
	case DropNoBand:
		return "no_band"
	case DropLoss:
		return "loss"
	case DropUnknownSlice:
		return "unknown_slice"
	case DropCongestion:
		return "congestion"
	default:
		return fmt.Sprintf("reason_%d", int(r))
	}
}

// An Aggregator holds the monotonic counters of the simulation and the shared
// slice table. All counters are lock-free atomics, so any number of writers
// and readers may use it concurrently without blocking each other.
type Aggregator struct {
	packetsSent       atomic.Int64
	packetsReceived   atomic.Int64
	packetsDropped    atomic.Int64
	bytesSent         atomic.Int64
	bytesReceived     atomic.Int64
	latencySumMicros  atomic.Int64
	latencyCount      atomic.Int64
	transformFailures atomic.Int64
	dropsByReason     [numDropReasons]atomic.Int64

	slices *slicing.Table
}

// NewAggregator creates an aggregator over the given slice table. A nil table
// is replaced by an empty one.
func NewAggregator(slices *slicing.Table) *Aggregator {
	if slices == nil {
		slices = slicing.NewTable()
	}

	return &Aggregator{slices: slices}
}

// Slices returns the shared slice table.
func (a *Aggregator) Slices() *slicing.Table {
	return a.slices
}

// OnSend records a message of plainBytes bytes leaving a node.
func (a *Aggregator) OnSend(plainBytes int) {
	a.packetsSent.Add(1)
	a.bytesSent.Add(int64(plainBytes))
}

// OnReceive records a message of plainBytes bytes consumed by a node after the
// given end-to-end latency.
func (a *Aggregator) OnReceive(plainBytes int, latency time.Duration) {
	if latency < 0 {
		latency = 0
	}

	a.packetsReceived.Add(1)
	a.bytesReceived.Add(int64(plainBytes))
	a.latencySumMicros.Add(latency.Microseconds())
	a.latencyCount.Add(1)
}

// OnDrop records a dropped message.
func (a *Aggregator) OnDrop(reason DropReason) {
	a.packetsDropped.Add(1)

	if reason >= 0 && reason < numDropReasons {
		a.dropsByReason[reason].Add(1)
	}
}

// OnTransformFailure records a message that could not be opened.
func (a *Aggregator) OnTransformFailure() {
	a.transformFailures.Add(1)
}

// PacketsSent returns the number of messages sent.
func (a *Aggregator) PacketsSent() int64 { return a.packetsSent.Load() }

// PacketsReceived returns the number of messages received.
func (a *Aggregator) PacketsReceived() int64 { return a.packetsReceived.Load() }

// PacketsDropped returns the number of messages dropped by the channel.
func (a *Aggregator) PacketsDropped() int64 { return a.packetsDropped.Load() }

// BytesSent returns the plaintext bytes sent.
func (a *Aggregator) BytesSent() int64 { return a.bytesSent.Load() }

// BytesReceived returns the plaintext bytes received.
func (a *Aggregator) BytesReceived() int64 { return a.bytesReceived.Load() }

// TransformFailures returns the number of messages that failed to open.
func (a *Aggregator) TransformFailures() int64 { return a.transformFailures.Load() }

// DropsFor returns the number of drops with the given reason.
func (a *Aggregator) DropsFor(reason DropReason) int64 {
	if reason < 0 || reason >= numDropReasons {
		return 0
	}

	return a.dropsByReason[reason].Load()
}

// LatencyTotals returns the latency sum in microseconds and the number of
// latency samples.
func (a *Aggregator) LatencyTotals() (sumMicros, count int64) {
	return a.latencySumMicros.Load(), a.latencyCount.Load()
}

// AverageLatencyMs returns the mean latency since the start of the run, or 0
// if nothing has been received.
func (a *Aggregator) AverageLatencyMs() float64 {
	sum, count := a.LatencyTotals()

	return AverageMs(sum, count)
}

// AverageMs converts a microsecond latency sum and a sample count into a mean
// in milliseconds.
func AverageMs(sumMicros, count int64) float64 {
	if count <= 0 {
		return 0
	}

	return float64(sumMicros) / float64(count) / 1000.0
}
