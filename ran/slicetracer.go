package ran

import (
	"strings"
	"sync"
	"time"

	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/sim/hooking"
	"golang.org/x/exp/slices"
)

// SliceStats is what a SliceTracer knows about one slice.
type SliceStats struct {
	SliceID          string                        `json:"slice_id"`
	Received         uint64                        `json:"received"`
	AverageLatencyMs float64                       `json:"avg_latency_ms"`
	MaxLatencyMs     float64                       `json:"max_latency_ms"`
	Drops            map[metrics.DropReason]uint64 `json:"-"`
	DropsByReason    map[string]uint64             `json:"drops"`
}

type sliceRecord struct {
	received     uint64
	totalLatency time.Duration
	maxLatency   time.Duration
	drops        map[metrics.DropReason]uint64
}

// A SliceTracer breaks the global counters down per slice. Attach it to the
// nodes to collect latencies and to the channel to collect drops.
type SliceTracer struct {
	name string

	lock    sync.Mutex
	records map[string]*sliceRecord
}

// NewSliceTracer creates a new SliceTracer.
func NewSliceTracer(name string) *SliceTracer {
	return &SliceTracer{
		name:    name,
		records: make(map[string]*sliceRecord),
	}
}

// Name returns the name of the tracer.
func (t *SliceTracer) Name() string {
	return t.name
}

// Func records receptions and drops.
func (t *SliceTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosNodeRecv:
		t.recordReceive(ctx.Item.(PlainMessage).SliceID, ctx.Detail.(time.Duration))
	case HookPosChannelDrop:
		t.recordDrop(ctx.Item.(*SealedMessage).SliceID, ctx.Detail.(DropInfo).Reason)
	}
}

func (t *SliceTracer) record(sliceID string) *sliceRecord {
	r, ok := t.records[sliceID]
	if !ok {
		r = &sliceRecord{drops: make(map[metrics.DropReason]uint64)}
		t.records[sliceID] = r
	}

	return r
}

func (t *SliceTracer) recordReceive(sliceID string, latency time.Duration) {
	t.lock.Lock()
	defer t.lock.Unlock()

	r := t.record(sliceID)
	r.received++
	r.totalLatency += latency

	if latency > r.maxLatency {
		r.maxLatency = latency
	}
}

func (t *SliceTracer) recordDrop(sliceID string, reason metrics.DropReason) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.record(sliceID).drops[reason]++
}

// Stats returns the statistics of every slice seen so far, sorted by slice ID.
func (t *SliceTracer) Stats() []SliceStats {
	t.lock.Lock()
	defer t.lock.Unlock()

	out := make([]SliceStats, 0, len(t.records))

	for id, r := range t.records {
		s := SliceStats{
			SliceID:       id,
			Received:      r.received,
			MaxLatencyMs:  toMs(r.maxLatency),
			Drops:         make(map[metrics.DropReason]uint64, len(r.drops)),
			DropsByReason: make(map[string]uint64, len(r.drops)),
		}

		if r.received > 0 {
			s.AverageLatencyMs = toMs(r.totalLatency) / float64(r.received)
		}

		for reason, n := range r.drops {
			s.Drops[reason] = n
			s.DropsByReason[reason.String()] = n
		}

		out = append(out, s)
	}

	slices.SortFunc(out, func(a, b SliceStats) int {
		return strings.Compare(a.SliceID, b.SliceID)
	})

	return out
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
