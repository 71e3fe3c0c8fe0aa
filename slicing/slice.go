// Package slicing defines network slices, the logical traffic classes that
// share the radio channel, and the table that holds them.
package slicing

import (
	"fmt"
	"sync/atomic"
)

// A Slice is a logical traffic class with its own shaped bandwidth and
// latency target.
//
// Only the bandwidth changes after creation, and only the bandwidth
// controller writes it. Readers may observe a value that is one control tick
// old.
type Slice struct {
	ID                  string
	Description         string
	BucketCapacityBytes int64
	TargetLatencyMs     float64

	bandwidthBps atomic.Int64
}

// NewSlice creates a slice. It panics if the bandwidth or the bucket capacity
// is not positive.
func NewSlice(
	id, description string,
	bandwidthBps, bucketCapacityBytes int64,
	targetLatencyMs float64,
) *Slice {
	if bucketCapacityBytes <= 0 {
		panic(fmt.Sprintf("slice %s: bucket capacity must be positive", id))
	}

	s := &Slice{
		ID:                  id,
		Description:         description,
		BucketCapacityBytes: bucketCapacityBytes,
		TargetLatencyMs:     targetLatencyMs,
	}
	s.SetBandwidth(bandwidthBps)

	return s
}

// Bandwidth returns the current bandwidth in bits per second.
func (s *Slice) Bandwidth() int64 {
	return s.bandwidthBps.Load()
}

// SetBandwidth updates the bandwidth. The bandwidth must stay positive.
func (s *Slice) SetBandwidth(bps int64) {
	if bps <= 0 {
		panic(fmt.Sprintf("slice %s: bandwidth must be positive, got %d", s.ID, bps))
	}

	s.bandwidthBps.Store(bps)
}

// String returns a short description of the slice.
func (s *Slice) String() string {
	return fmt.Sprintf("%s(%d bps)", s.ID, s.Bandwidth())
}
