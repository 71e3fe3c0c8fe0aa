package metrics

import (
	"fmt"
	"strings"
)

// SliceBandwidth is the bandwidth of one slice at snapshot time.
type SliceBandwidth struct {
	ID              string  `json:"id"`
	Description     string  `json:"description"`
	BandwidthBps    int64   `json:"bandwidth_bps"`
	TargetLatencyMs float64 `json:"target_latency_ms"`
}

// A Snapshot is a read-only copy of the counters. Counters are read one at a
// time, so a snapshot taken during traffic is not a single atomic cut.
type Snapshot struct {
	PacketsSent       int64            `json:"packets_sent"`
	PacketsReceived   int64            `json:"packets_received"`
	PacketsDropped    int64            `json:"packets_dropped"`
	BytesSent         int64            `json:"bytes_sent"`
	BytesReceived     int64            `json:"bytes_received"`
	AverageLatencyMs  float64          `json:"average_latency_ms"`
	TransformFailures int64            `json:"transform_failures"`
	DropsByReason     map[string]int64 `json:"drops_by_reason"`
	Slices            []SliceBandwidth `json:"slices"`
}

// Snapshot copies the current values.
func (a *Aggregator) Snapshot() Snapshot {
	s := Snapshot{
		PacketsSent:       a.PacketsSent(),
		PacketsReceived:   a.PacketsReceived(),
		PacketsDropped:    a.PacketsDropped(),
		BytesSent:         a.BytesSent(),
		BytesReceived:     a.BytesReceived(),
		AverageLatencyMs:  a.AverageLatencyMs(),
		TransformFailures: a.TransformFailures(),
		DropsByReason:     make(map[string]int64, numDropReasons),
	}

	for _, r := range DropReasons {
		s.DropsByReason[r.String()] = a.DropsFor(r)
	}

	for _, sl := range a.slices.List() {
		s.Slices = append(s.Slices, SliceBandwidth{
			ID:              sl.ID,
			Description:     sl.Description,
			BandwidthBps:    sl.Bandwidth(),
			TargetLatencyMs: sl.TargetLatencyMs,
		})
	}

	return s
}

// String formats the snapshot on one line.
func (s Snapshot) String() string {
	b := strings.Builder{}

	fmt.Fprintf(&b,
		"sent=%d recv=%d drop=%d bytesSent=%d bytesRecv=%d avgLatMs=%.2f",
		s.PacketsSent, s.PacketsReceived, s.PacketsDropped,
		s.BytesSent, s.BytesReceived, s.AverageLatencyMs)

	if s.TransformFailures > 0 {
		fmt.Fprintf(&b, " transformFailures=%d", s.TransformFailures)
	}

	return b.String()
}
