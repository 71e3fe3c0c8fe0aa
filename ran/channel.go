package ran

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sarchlab/slicesim/metrics"
	"github.com/sarchlab/slicesim/sim/hooking"
	"github.com/sarchlab/slicesim/sim/timing"
	"github.com/sarchlab/slicesim/slicing"
)

// HookPosChannelDrop marks a message dropped by the channel. The hook item is
// the message and the detail is a DropInfo.
var HookPosChannelDrop = &hooking.HookPos{Name: "ChannelDrop"}

// HookPosChannelDeliver marks a message handed to its destination. The hook
// item is the message and the detail is the band it travelled on.
var HookPosChannelDeliver = &hooking.HookPos{Name: "ChannelDeliver"}

// DropInfo describes why a message was dropped.
type DropInfo struct {
	Band   Band
	Reason metrics.DropReason
}

// A Transmitter puts sealed messages on the air.
type Transmitter interface {
	Transmit(band Band, m *SealedMessage, dst Deliverer)
}

// A Channel carries sealed messages between nodes. It applies the band's loss,
// shapes every slice with a token bucket and delays each message by the band
// latency, jitter and serialization time before it reaches the destination.
//
// Deliveries and bucket replenishment run as events on the shared engine.
type Channel struct {
	hooking.HookableBase

	name           string
	engine         timing.Engine
	metrics        *metrics.Aggregator
	slices         *slicing.Table
	logger         zerolog.Logger
	ticksPerSecond int
	random         *channelRandom
	replenisher    *timing.Ticker

	lock     sync.RWMutex
	profiles map[Band]BandProfile
	buckets  map[string]*TokenBucket

	open atomic.Bool
}

type deliveryEvent struct {
	timing.EventBase
	band Band
	msg  *SealedMessage
	dst  Deliverer
}

// Name returns the name of the channel.
func (c *Channel) Name() string {
	return c.name
}

// TicksPerSecond returns how often the buckets are replenished.
func (c *Channel) TicksPerSecond() int {
	return c.ticksPerSecond
}

// Config sets the profile of a band, replacing any earlier one.
func (c *Channel) Config(band Band, profile BandProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	c.lock.Lock()
	c.profiles[band] = profile
	c.lock.Unlock()

	c.logger.Debug().
		Stringer("band", band).
		Float64("base_ms", profile.BaseLatencyMs).
		Float64("jitter_ms", profile.JitterMs).
		Float64("loss", profile.LossProbability).
		Int64("capacity_bps", profile.CapacityBps).
		Msg("band configured")

	return nil
}

// Profile returns the profile of a band.
func (c *Channel) Profile(band Band) (BandProfile, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	p, ok := c.profiles[band]

	return p, ok
}

// RegisterSlice creates the bucket of a slice and adds the slice to the
// shared slice table. Registering an already known slice ID has no effect and
// returns the slice registered first.
func (c *Channel) RegisterSlice(s *slicing.Slice) *slicing.Slice {
	c.lock.Lock()
	defer c.lock.Unlock()

	if b, ok := c.buckets[s.ID]; ok {
		return b.Slice()
	}

	s = c.slices.Register(s)
	c.buckets[s.ID] = NewTokenBucket(s, c.ticksPerSecond)

	return s
}

// Bucket returns the bucket of a slice, or nil if the slice is unknown.
func (c *Channel) Bucket(sliceID string) *TokenBucket {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.buckets[sliceID]
}

// Transmit sends a message over a band towards dst. It never blocks and never
// fails: a message that cannot be carried is counted as dropped. After Close,
// messages are ignored.
func (c *Channel) Transmit(band Band, m *SealedMessage, dst Deliverer) {
	if !c.open.Load() {
		return
	}

	profile, ok := c.Profile(band)
	if !ok {
		c.drop(band, m, metrics.DropNoBand)
		return
	}

	if c.random.lost(profile.LossProbability) {
		c.drop(band, m, metrics.DropLoss)
		return
	}

	bucket := c.Bucket(m.SliceID)
	if bucket == nil {
		c.drop(band, m, metrics.DropUnknownSlice)
		return
	}

	if !bucket.TryConsume(int64(m.Size())) {
		c.drop(band, m, metrics.DropCongestion)
		return
	}

	evt := deliveryEvent{
		EventBase: timing.MakeEventBase(
			c.engine.Now().Add(c.delay(profile, m.Size())), c),
		band: band,
		msg:  m,
		dst:  dst,
	}
	c.engine.Schedule(evt)
}

func (c *Channel) delay(profile BandProfile, size int) time.Duration {
	latencyMs := profile.BaseLatencyMs
	if profile.JitterMs > 0 {
		latencyMs += c.random.standardNormal() * profile.JitterMs
	}

	latencyMs = math.Max(0, latencyMs) + profile.SerializationDelayMs(size)

	return time.Duration(latencyMs * float64(time.Millisecond))
}

func (c *Channel) drop(band Band, m *SealedMessage, reason metrics.DropReason) {
	c.metrics.OnDrop(reason)

	c.logger.Trace().
		Str("msg", m.ID).
		Str("slice", m.SliceID).
		Stringer("band", band).
		Stringer("reason", reason).
		Msg("dropped")

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosChannelDrop,
		Item:   m,
		Detail: DropInfo{Band: band, Reason: reason},
	})
}

// Handle delivers a message whose delay has elapsed.
func (c *Channel) Handle(e timing.Event) error {
	switch evt := e.(type) {
	case deliveryEvent:
		c.deliver(evt)
	default:
		panic("cannot handle event of unknown type")
	}

	return nil
}

func (c *Channel) deliver(evt deliveryEvent) {
	if !c.open.Load() {
		return
	}

	evt.dst.Deliver(evt.msg)

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosChannelDeliver,
		Item:   evt.msg,
		Detail: evt.band,
	})
}

// Tick replenishes every bucket once.
func (c *Channel) Tick(_ time.Time) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for _, b := range c.buckets {
		b.Replenish()
	}
}

// Close stops the channel. Messages transmitted afterwards are ignored and
// deliveries that are still in flight are abandoned.
func (c *Channel) Close() {
	if !c.open.CompareAndSwap(true, false) {
		return
	}

	c.replenisher.Stop()
	c.logger.Debug().Msg("channel closed")
}

// Closed tells if the channel has been closed.
func (c *Channel) Closed() bool {
	return !c.open.Load()
}
