package client

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
)

// requestIDs hands out positive request ids in increasing order,
// wrapping back to 1 after math.MaxInt32.
type requestIDs struct {
	last atomic.Int32
}

func newRequestIDs() *requestIDs {
	return newRequestIDsFrom(rand.Int32N(math.MaxInt32))
}

func newRequestIDsFrom(last int32) *requestIDs {
	ids := &requestIDs{}
	ids.last.Store(last)
	return ids
}

func (r *requestIDs) next() int32 {
	for {
		last := r.last.Load()
		next := last + 1
		if next <= 0 {
			next = 1
		}
		if r.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
