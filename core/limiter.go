package core

import (
	"errors"
	"fmt"
)

// ErrChunkLimit is reported when the maximum number of chunks per decision
// has been built.
var ErrChunkLimit = errors.New("max chunks reached")

// ChunkLimiter enforces a maximum number of chunking attempts per decision.
type ChunkLimiter struct {
	max   int
	count int
}

// NewChunkLimiter creates a new limiter with a max number of chunks.
// If max == 0, unlimited chunks are allowed.
func NewChunkLimiter(max int) *ChunkLimiter {
	return &ChunkLimiter{max: max}
}

// Increment increases the counter and returns an error if the limit is exceeded.
func (cl *ChunkLimiter) Increment() error {
	cl.count++
	if cl.max > 0 && cl.count > cl.max {
		return fmt.Errorf("%w: %d", ErrChunkLimit, cl.max)
	}

	return nil
}

// Count returns the number of chunks counted since the last reset.
func (cl *ChunkLimiter) Count() int {
	return cl.count
}

// Remaining returns how many chunks are left before hitting the limit.
func (cl *ChunkLimiter) Remaining() int {
	if cl.max == 0 {
		return -1 // unlimited
	}

	return cl.max - cl.count
}

// Reset starts a new decision.
func (cl *ChunkLimiter) Reset() {
	cl.count = 0
}

// LimitedChunker counts learning-enabled chunk attempts against a limiter.
// Once the limit is exceeded it stops forwarding and reports the exhaustion,
// which the engine turns into a system halt.
type LimitedChunker struct {
	next        Chunker
	limiter     *ChunkLimiter
	onExhausted func(error)
}

// NewLimitedChunker wraps next. onExhausted may be nil.
func NewLimitedChunker(next Chunker, limiter *ChunkLimiter, onExhausted func(error)) *LimitedChunker {
	return &LimitedChunker{next: next, limiter: limiter, onExhausted: onExhausted}
}

// Limiter exposes the wrapped limiter.
func (lc *LimitedChunker) Limiter() *ChunkLimiter { return lc.limiter }

// ChunkInstantiation forwards to the wrapped chunker unless the limit has
// been exceeded.
func (lc *LimitedChunker) ChunkInstantiation(id InstID, inst *Instantiation, learning bool) {
	if learning {
		if err := lc.limiter.Increment(); err != nil {
			if lc.onExhausted != nil {
				lc.onExhausted(err)
			}
			return
		}
	}
	lc.next.ChunkInstantiation(id, inst, learning)
}
