// Package store abstracts the bet persistence collaborator: append-a-batch
// and iterate-all. The core protocol engine only depends on this interface;
// concrete backends (file_store.go, postgres_store.go) are domain-stack glue.
package store

import (
	"context"

	"github.com/fedepagnotta/lotteryd/internal/bet"
)

// Store is the minimal interface the draw coordinator needs from persistence.
type Store interface {
	// AppendBatch durably appends all bets in the batch. Callers must hold
	// the coordinator's FileLock for the duration of the call.
	AppendBatch(ctx context.Context, bets []bet.Bet) error
	// LoadAll enumerates every persisted bet, in append order. Called
	// exactly once, during the draw.
	LoadAll(ctx context.Context) ([]bet.Bet, error)
	// Close releases any held resources (file handles, connection pools).
	Close() error
}
