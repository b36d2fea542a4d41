package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fedepagnotta/lotteryd/internal/bet"
)

func mustBet(t *testing.T, agency, first, last, doc, birth, number string) bet.Bet {
	t.Helper()
	b, err := bet.New(agency, first, last, doc, birth, number)
	if err != nil {
		t.Fatalf("bet.New: %v", err)
	}
	return b
}

func TestFileStore_AppendThenLoadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bets.csv")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	batch1 := []bet.Bet{
		mustBet(t, "1", "Juan", "Perez", "30123456", "1990-05-01", "4242"),
	}
	batch2 := []bet.Bet{
		mustBet(t, "2", "Ana", "Lopez", "40123456", "1985-02-02", "17"),
		mustBet(t, "1", "Carlos", "Diaz", "50123456", "1975-03-03", "9"),
	}

	if err := s.AppendBatch(ctx, batch1); err != nil {
		t.Fatalf("AppendBatch 1: %v", err)
	}
	if err := s.AppendBatch(ctx, batch2); err != nil {
		t.Fatalf("AppendBatch 2: %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 bets, got %d: %+v", len(all), all)
	}
	if all[0].Document != "30123456" || all[1].Document != "40123456" || all[2].Document != "50123456" {
		t.Fatalf("unexpected order: %+v", all)
	}
}

func TestFileStore_LoadAllOnMissingFileIsEmpty(t *testing.T) {
	s := &FileStore{path: filepath.Join(t.TempDir(), "missing.csv")}
	all, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty, got %+v", all)
	}
}
