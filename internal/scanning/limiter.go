package scanning

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultPoolSize is the default number of concurrent probes per scan.
	DefaultPoolSize = 200
	// MaxPoolSize caps pool size regardless of configuration.
	MaxPoolSize = 10000

	// fdReserve is kept free for logs, the API listener and the database.
	fdReserve = 64
)

// ProbeLimiter bounds the number of probes holding a socket at once and
// records the highest concurrency it has seen.
type ProbeLimiter struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewProbeLimiter creates a limiter with the given capacity (at least 1).
func NewProbeLimiter(capacity int) *ProbeLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	return &ProbeLimiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *ProbeLimiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if n <= peak || l.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (l *ProbeLimiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// InFlight returns the number of slots currently held.
func (l *ProbeLimiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Peak returns the highest number of slots held at once.
func (l *ProbeLimiter) Peak() int {
	return int(l.peak.Load())
}

// Capacity returns the maximum number of concurrent slots.
func (l *ProbeLimiter) Capacity() int {
	return l.capacity
}

// ClampPoolSize lowers size so that a full pool of sockets fits under the
// process open file limit, leaving a reserve for everything else.
func ClampPoolSize(size int) int {
	if size > MaxPoolSize {
		size = MaxPoolSize
	}
	limit, ok := openFileLimit()
	if !ok || limit <= fdReserve {
		return size
	}
	if avail := int(min(limit-fdReserve, uint64(MaxPoolSize))); size > avail {
		return max(avail, 1)
	}
	return size
}
