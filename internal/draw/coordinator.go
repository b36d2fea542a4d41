package draw

import (
	"context"
	"strconv"
	"sync"

	"github.com/fedepagnotta/lotteryd/internal/bet"
	"github.com/fedepagnotta/lotteryd/internal/logging"
	"github.com/fedepagnotta/lotteryd/internal/metrics"
	"github.com/fedepagnotta/lotteryd/internal/store"
)

// WinnerPredicate decides whether a bet is a winning one. The business rule
// itself is external to this system; DefaultPredicate stands in for it.
type WinnerPredicate func(bet.Bet) bool

// DefaultPredicate declares a bet a winner iff its number is divisible by 7.
func DefaultPredicate(b bet.Bet) bool {
	n, err := strconv.Atoi(b.Number)
	if err != nil {
		return false
	}
	return n%7 == 0
}

// Coordinator holds all process-wide state needed to enforce the draw-once
// invariant across independent session-handler goroutines: the set of
// agencies that have finished, the materialized bets table, the rendezvous
// barrier gating the draw, and the locks serializing access to the store and
// the table.
type Coordinator struct {
	total int
	store store.Store

	fileLock sync.Mutex

	tableLock sync.RWMutex
	finished  map[int]struct{}
	table     []bet.Bet
	drawn     bool

	barrier   *Barrier
	predicate WinnerPredicate
}

// NewCoordinator constructs a coordinator for total agencies, backed by s.
func NewCoordinator(total int, s store.Store) *Coordinator {
	return &Coordinator{
		total:     total,
		store:     s,
		finished:  make(map[int]struct{}, total),
		barrier:   NewBarrier(total),
		predicate: DefaultPredicate,
	}
}

// SetPredicate overrides the winner predicate. Intended for tests and for
// wiring in a real business rule; must be called before any RecordFinish.
func (c *Coordinator) SetPredicate(p WinnerPredicate) {
	c.tableLock.Lock()
	defer c.tableLock.Unlock()
	c.predicate = p
}

// AppendBatch durably stores bets under FileLock, serializing concurrent
// batches from independent connections into a total order.
func (c *Coordinator) AppendBatch(ctx context.Context, bets []bet.Bet) error {
	c.fileLock.Lock()
	defer c.fileLock.Unlock()
	return c.store.AppendBatch(ctx, bets)
}

// RecordFinish marks agency as finished and blocks at the barrier until all
// total agencies have done so. The caller observing the N-1 -> N transition
// materializes the bets table from the store before anyone is released. If
// the barrier is torn down (shutdown in progress) before release, tornDown
// is true and the caller must not respond to its client.
func (c *Coordinator) RecordFinish(ctx context.Context, agency int) (tornDown bool, err error) {
	c.tableLock.Lock()
	_, already := c.finished[agency]
	if !already {
		if len(c.finished) == c.total-1 {
			table, loadErr := c.store.LoadAll(ctx)
			if loadErr != nil {
				c.tableLock.Unlock()
				logging.L().Errorf("action: sorteo | result: fail | error: %v", loadErr)
				return false, loadErr
			}
			c.table = table
			c.drawn = true
			logging.L().Info("action: sorteo | result: success")
			metrics.DrawCompleted.Set(1)
		}
		c.finished[agency] = struct{}{}
		metrics.AgenciesFinished.Set(float64(len(c.finished)))
	}
	c.tableLock.Unlock()

	// A duplicate FINISHED from an agency that already arrived must not count
	// as a second party reaching the barrier; it only waits for the same
	// release every genuine arrival is waiting for.
	if already {
		return c.barrier.WaitRelease(ctx)
	}
	return c.barrier.Wait(ctx)
}

// WinnersFor returns the document of every bet belonging to agency for which
// the configured predicate holds, preserving the table's load order. Safe to
// call before the draw has happened; returns nil in that case.
func (c *Coordinator) WinnersFor(agency int) []string {
	c.tableLock.RLock()
	defer c.tableLock.RUnlock()

	var docs []string
	for _, b := range c.table {
		if b.Agency == agency && c.predicate(b) {
			docs = append(docs, b.Document)
		}
	}
	return docs
}

// Quorum reports how many distinct agencies have called RecordFinish so far.
func (c *Coordinator) Quorum() int {
	c.tableLock.RLock()
	defer c.tableLock.RUnlock()
	return len(c.finished)
}

// Total reports the configured number of agencies.
func (c *Coordinator) Total() int { return c.total }

// Drawn reports whether the bets table has been materialized yet.
func (c *Coordinator) Drawn() bool {
	c.tableLock.RLock()
	defer c.tableLock.RUnlock()
	return c.drawn
}

// TearDown releases every worker currently blocked in RecordFinish's barrier
// wait, and causes every future call to return immediately torn down. Called
// once, from the shutdown path.
func (c *Coordinator) TearDown() {
	c.barrier.TearDown()
}
