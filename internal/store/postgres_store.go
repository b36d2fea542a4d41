package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fedepagnotta/lotteryd/internal/bet"
	"github.com/fedepagnotta/lotteryd/internal/lotteryerr"
)

const createBetsTable = `
CREATE TABLE IF NOT EXISTS bets (
	id         BIGSERIAL PRIMARY KEY,
	agency     INTEGER NOT NULL,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL,
	document   TEXT NOT NULL,
	birthdate  TEXT NOT NULL,
	number     TEXT NOT NULL
)`

const insertBetSQL = `INSERT INTO bets (agency, first_name, last_name, document, birthdate, number)
VALUES ($1, $2, $3, $4, $5, $6)`

const selectAllBetsSQL = `SELECT agency, first_name, last_name, document, birthdate, number FROM bets ORDER BY id ASC`

// PostgresStore is the opt-in Store backend backed by a pgx/v5 connection
// pool, selected with -store-backend=postgres: a real, poolable backend
// suited to a multi-process or multi-host deployment of lotteryd.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, creates the bets table if absent, and
// returns a ready-to-use store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", lotteryerr.ErrStorage, err)
	}
	if _, err := pool.Exec(ctx, createBetsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: create table: %v", lotteryerr.ErrStorage, err)
	}
	return &PostgresStore{pool: pool}, nil
}

// AppendBatch inserts every bet in one round trip using pgx's pipelined batch API.
func (s *PostgresStore) AppendBatch(ctx context.Context, bets []bet.Bet) error {
	batch := buildInsertBatch(bets)
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range bets {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("%w: insert: %v", lotteryerr.ErrStorage, err)
		}
	}
	return nil
}

// buildInsertBatch is split out for unit testing independent of a live pool.
func buildInsertBatch(bets []bet.Bet) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, b := range bets {
		batch.Queue(insertBetSQL, b.Agency, b.FirstName, b.LastName, b.Document, b.Birthdate, b.Number)
	}
	return batch
}

// LoadAll enumerates every persisted bet in insertion order.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]bet.Bet, error) {
	rows, err := s.pool.Query(ctx, selectAllBetsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", lotteryerr.ErrStorage, err)
	}
	defer rows.Close()

	var out []bet.Bet
	for rows.Next() {
		var b bet.Bet
		if err := rows.Scan(&b.Agency, &b.FirstName, &b.LastName, &b.Document, &b.Birthdate, &b.Number); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", lotteryerr.ErrStorage, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", lotteryerr.ErrStorage, err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
