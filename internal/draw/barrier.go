// Package draw implements the cross-connection coordination that ensures the
// lottery draw happens exactly once, after every agency has declared itself
// finished: the finished-agencies set, the bets table, the rendezvous
// barrier, and the locks guarding them.
package draw

import (
	"context"
	"sync"
)

// Barrier is a single-use N-party rendezvous. Every party calls Wait; none
// return until all N have arrived, unless the barrier is torn down first
// (graceful shutdown), in which case every blocked and every future Wait
// returns immediately with torn down reported true.
type Barrier struct {
	n int

	mu       sync.Mutex
	count    int
	release  chan struct{}
	tornDown bool
}

// NewBarrier constructs a barrier for exactly n parties. n must be >= 1.
func NewBarrier(n int) *Barrier {
	return &Barrier{n: n, release: make(chan struct{})}
}

// Wait blocks until either the Nth party arrives (releasing all N
// simultaneously) or ctx is canceled or the barrier is torn down. It reports
// tornDown true in the latter two cases; the caller must not treat that as a
// successful rendezvous.
func (b *Barrier) Wait(ctx context.Context) (tornDown bool, err error) {
	b.mu.Lock()
	if b.tornDown {
		b.mu.Unlock()
		return true, nil
	}
	b.count++
	release := b.release
	reached := b.count == b.n
	if reached {
		close(release)
	}
	b.mu.Unlock()

	select {
	case <-release:
		b.mu.Lock()
		tornDown := b.tornDown
		b.mu.Unlock()
		return tornDown, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// WaitRelease blocks until the barrier releases (the Nth party arrives
// elsewhere, or it is torn down) or ctx is canceled, without itself counting
// as an arrival. Intended for a caller that must rendezvous with the same
// release event as Wait's callers but whose arrival was already recorded
// (e.g. a duplicate signal from a party that has already called Wait once).
func (b *Barrier) WaitRelease(ctx context.Context) (tornDown bool, err error) {
	b.mu.Lock()
	if b.tornDown {
		b.mu.Unlock()
		return true, nil
	}
	release := b.release
	b.mu.Unlock()

	select {
	case <-release:
		b.mu.Lock()
		tornDown := b.tornDown
		b.mu.Unlock()
		return tornDown, nil
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// TearDown releases every party currently blocked in Wait, and causes every
// future Wait to return immediately, without ever reaching the Nth arrival.
// Used by the shutdown path so a stuck worker cannot block process exit.
func (b *Barrier) TearDown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tornDown {
		return
	}
	b.tornDown = true
	select {
	case <-b.release:
		// already closed by reaching N; nothing further to release.
	default:
		close(b.release)
	}
}
