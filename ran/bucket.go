package ran

import (
	"sync/atomic"

	"github.com/sarchlab/slicesim/slicing"
)

// A TokenBucket bounds the bytes a slice may put on the channel. It starts
// full, and every replenishment tick adds bandwidth/8/ticksPerSecond bytes, at
// least one, up to the capacity.
//
// Consumers and the replenisher race on the token count with compare-and-swap,
// so the count never goes negative or above the capacity.
type TokenBucket struct {
	slice          *slicing.Slice
	capacity       int64
	ticksPerSecond int64
	tokens         atomic.Int64
}

// NewTokenBucket creates a full bucket for the slice.
func NewTokenBucket(slice *slicing.Slice, ticksPerSecond int) *TokenBucket {
	if ticksPerSecond <= 0 {
		panic("ticks per second must be positive")
	}

	b := &TokenBucket{
		slice:          slice,
		capacity:       slice.BucketCapacityBytes,
		ticksPerSecond: int64(ticksPerSecond),
	}
	b.tokens.Store(b.capacity)

	return b
}

// Slice returns the slice the bucket shapes.
func (b *TokenBucket) Slice() *slicing.Slice {
	return b.slice
}

// Capacity returns the maximum number of tokens.
func (b *TokenBucket) Capacity() int64 {
	return b.capacity
}

// Tokens returns the tokens currently available.
func (b *TokenBucket) Tokens() int64 {
	return b.tokens.Load()
}

// TryConsume takes n tokens if at least n are available. Either all n tokens
// are taken or none is.
func (b *TokenBucket) TryConsume(n int64) bool {
	if n < 0 {
		return false
	}

	for {
		cur := b.tokens.Load()
		if cur < n {
			return false
		}

		if b.tokens.CompareAndSwap(cur, cur-n) {
			return true
		}
	}
}

// PerTick returns the bytes the next replenishment adds. It reads the slice
// bandwidth, so a bandwidth change shows up at the next tick.
func (b *TokenBucket) PerTick() int64 {
	perTick := b.slice.Bandwidth() / 8 / b.ticksPerSecond
	if perTick < 1 {
		perTick = 1
	}

	return perTick
}

// Replenish adds one tick worth of tokens, clamped at the capacity.
func (b *TokenBucket) Replenish() {
	add := b.PerTick()

	for {
		cur := b.tokens.Load()
		next := cur + add
		if next > b.capacity || next < cur {
			next = b.capacity
		}

		if next == cur || b.tokens.CompareAndSwap(cur, next) {
			return
		}
	}
}
