package ran

import (
	"sync"

	"github.com/iti/rngstream"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// channelRandom draws the random numbers of a channel. Loss draws come from
// a named L'Ecuyer stream and jitter draws from a seeded standard normal.
// Transmit runs on many goroutines, so both are guarded by one lock.
type channelRandom struct {
	lock   sync.Mutex
	loss   *rngstream.RngStream
	jitter distuv.Normal
}

func newChannelRandom(name string, seed uint64) *channelRandom {
	return &channelRandom{
		loss: rngstream.New(name),
		jitter: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
	}
}

// lost reports if a message is lost under the given probability.
func (r *channelRandom) lost(probability float64) bool {
	if probability <= 0 {
		return false
	}

	if probability >= 1 {
		return true
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	return r.loss.RandU01() < probability
}

// standardNormal draws from N(0, 1).
func (r *channelRandom) standardNormal() float64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.jitter.Rand()
}
