package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/fedepagnotta/lotteryd/internal/bet"
	"github.com/fedepagnotta/lotteryd/internal/lotteryerr"
)

// FileStore is the default Store backend: bets are appended as CSV rows
// (agency,first_name,last_name,document,birthdate,number) to a single file,
// the same flat row shape the original course's server and client used.
//
// AppendBatch is also serialized by an OS-level advisory lock (see
// file_lock_linux.go) on top of the in-process mutex, so a second
// process pointed at the same path cannot interleave writes with this one.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore opens (creating if absent) the CSV file at path.
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", lotteryerr.ErrStorage, path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: close %s: %v", lotteryerr.ErrStorage, path, err)
	}
	return &FileStore{path: path}, nil
}

// AppendBatch appends every bet as one CSV row and flushes before returning.
func (s *FileStore) AppendBatch(ctx context.Context, bets []bet.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", lotteryerr.ErrStorage, s.path, err)
	}
	defer f.Close()

	unlock, err := lockExclusive(f)
	if err != nil {
		return fmt.Errorf("%w: flock %s: %v", lotteryerr.ErrStorage, s.path, err)
	}
	defer unlock()

	w := csv.NewWriter(f)
	for _, b := range bets {
		row := []string{
			strconv.Itoa(b.Agency), b.FirstName, b.LastName, b.Document, b.Birthdate, b.Number,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: write row: %v", lotteryerr.ErrStorage, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush: %v", lotteryerr.ErrStorage, err)
	}
	return nil
}

// LoadAll reads every persisted bet, in append order. Rows whose fields fail
// bet validation are skipped; a row that is not valid CSV or does not have
// exactly six fields fails the whole load with ErrStorage. (Neither should
// occur since only AppendBatch writes this file.)
func (s *FileStore) LoadAll(ctx context.Context) ([]bet.Bet, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", lotteryerr.ErrStorage, s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6
	var out []bet.Bet
	for {
		row, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read row: %v", lotteryerr.ErrStorage, err)
		}
		b, err := bet.New(row[0], row[1], row[2], row[3], row[4], row[5])
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Close is a no-op for FileStore: each operation opens and closes its own
// file descriptor, so there is no persistent handle to release.
func (s *FileStore) Close() error { return nil }
