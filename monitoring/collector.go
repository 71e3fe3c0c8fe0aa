package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/slicesim/metrics"
)

// snapshotCollector exposes the aggregator in the Prometheus text format. It
// reads the counters at scrape time, so every scrape is a fresh snapshot.
type snapshotCollector struct {
	metrics *metrics.Aggregator

	packets           *prometheus.Desc
	bytes             *prometheus.Desc
	avgLatency        *prometheus.Desc
	drops             *prometheus.Desc
	transformFailures *prometheus.Desc
	sliceBandwidth    *prometheus.Desc
	sliceTarget       *prometheus.Desc
}

func newSnapshotCollector(m *metrics.Aggregator) *snapshotCollector {
	return &snapshotCollector{
		metrics: m,
		packets: prometheus.NewDesc(
			"seven_g_packets_total",
			"Packets counters",
			[]string{"type"}, nil,
		),
		bytes: prometheus.NewDesc(
			"seven_g_bytes_total",
			"Bytes counters",
			[]string{"type"}, nil,
		),
		avgLatency: prometheus.NewDesc(
			"seven_g_avg_latency_ms",
			"Average latency in ms",
			nil, nil,
		),
		drops: prometheus.NewDesc(
			"seven_g_drops_total",
			"Dropped packets by reason",
			[]string{"reason"}, nil,
		),
		transformFailures: prometheus.NewDesc(
			"seven_g_transform_failures_total",
			"Messages that could not be sealed or opened",
			nil, nil,
		),
		sliceBandwidth: prometheus.NewDesc(
			"seven_g_slice_bandwidth_bps",
			"Current slice bandwidth settings",
			[]string{"slice"}, nil,
		),
		sliceTarget: prometheus.NewDesc(
			"seven_g_slice_target_latency_ms",
			"Slice latency targets",
			[]string{"slice"}, nil,
		),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packets
	ch <- c.bytes
	ch <- c.avgLatency
	ch <- c.drops
	ch <- c.transformFailures
	ch <- c.sliceBandwidth
	ch <- c.sliceTarget
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.metrics.Snapshot()

	counter := func(desc *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(
			desc, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.packets, s.PacketsSent, "sent")
	counter(c.packets, s.PacketsReceived, "recv")
	counter(c.packets, s.PacketsDropped, "drop")
	counter(c.bytes, s.BytesSent, "sent")
	counter(c.bytes, s.BytesReceived, "recv")
	counter(c.transformFailures, s.TransformFailures)

	for _, reason := range metrics.DropReasons {
		counter(c.drops, s.DropsByReason[reason.String()], reason.String())
	}

	ch <- prometheus.MustNewConstMetric(
		c.avgLatency, prometheus.GaugeValue, s.AverageLatencyMs)

	for _, sl := range s.Slices {
		ch <- prometheus.MustNewConstMetric(c.sliceBandwidth,
			prometheus.GaugeValue, float64(sl.BandwidthBps), sl.ID)
		ch <- prometheus.MustNewConstMetric(c.sliceTarget,
			prometheus.GaugeValue, sl.TargetLatencyMs, sl.ID)
	}
}
