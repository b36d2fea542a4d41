package draw

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fedepagnotta/lotteryd/internal/bet"
)

// memStore is a minimal in-memory store.Store, used to exercise Coordinator
// without touching a filesystem or database.
type memStore struct {
	mu   sync.Mutex
	bets []bet.Bet
}

func (m *memStore) AppendBatch(ctx context.Context, bets []bet.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bets = append(m.bets, bets...)
	return nil
}

func (m *memStore) LoadAll(ctx context.Context) ([]bet.Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]bet.Bet, len(m.bets))
	copy(out, m.bets)
	return out, nil
}

func (m *memStore) Close() error { return nil }

func mustBet(t *testing.T, agency int, doc, number string) bet.Bet {
	t.Helper()
	return bet.Bet{Agency: agency, FirstName: "F", LastName: "L", Document: doc, Birthdate: "2000-01-01", Number: number}
}

func TestCoordinator_DrawOnceAfterQuorum(t *testing.T) {
	s := &memStore{}
	c := NewCoordinator(3, s)

	if err := c.AppendBatch(context.Background(), []bet.Bet{
		mustBet(t, 1, "doc-a", "7"),
		mustBet(t, 2, "doc-b", "14"),
		mustBet(t, 3, "doc-c", "3"),
	}); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	var wg sync.WaitGroup
	for agency := 1; agency <= 3; agency++ {
		wg.Add(1)
		go func(agency int) {
			defer wg.Done()
			tornDown, err := c.RecordFinish(context.Background(), agency)
			if err != nil {
				t.Errorf("agency %d: RecordFinish: %v", agency, err)
			}
			if tornDown {
				t.Errorf("agency %d: unexpected teardown", agency)
			}
		}(agency)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RecordFinish did not release all agencies")
	}

	if !c.Drawn() {
		t.Fatal("expected draw to have happened")
	}
	if got := c.Quorum(); got != 3 {
		t.Fatalf("expected quorum 3, got %d", got)
	}

	if got := c.WinnersFor(1); len(got) != 1 || got[0] != "doc-a" {
		t.Fatalf("agency 1 winners: %+v", got)
	}
	if got := c.WinnersFor(2); len(got) != 1 || got[0] != "doc-b" {
		t.Fatalf("agency 2 winners: %+v", got)
	}
	if got := c.WinnersFor(3); len(got) != 0 {
		t.Fatalf("agency 3 winners: expected none, got %+v", got)
	}
}

func TestCoordinator_DuplicateFinishDoesNotAdvanceQuorum(t *testing.T) {
	c := NewCoordinator(2, &memStore{})

	go func() { _, _ = c.RecordFinish(context.Background(), 1) }()
	time.Sleep(20 * time.Millisecond)

	if got := c.Quorum(); got != 1 {
		t.Fatalf("expected quorum 1 after first FINISHED, got %d", got)
	}

	done := make(chan struct{})
	go func() {
		_, _ = c.RecordFinish(context.Background(), 1) // duplicate, same agency
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("duplicate FINISHED must not advance the barrier by itself")
	case <-time.After(100 * time.Millisecond):
	}

	c.TearDown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("teardown did not release duplicate-finished goroutine")
	}
}

func TestCoordinator_WinnersForBeforeDrawIsEmpty(t *testing.T) {
	c := NewCoordinator(2, &memStore{})
	if got := c.WinnersFor(1); len(got) != 0 {
		t.Fatalf("expected no winners before draw, got %+v", got)
	}
	if c.Drawn() {
		t.Fatal("expected draw not yet performed")
	}
}

func TestCoordinator_SetPredicate(t *testing.T) {
	s := &memStore{}
	c := NewCoordinator(1, s)
	c.SetPredicate(func(b bet.Bet) bool { return b.Document == "winner" })

	if err := c.AppendBatch(context.Background(), []bet.Bet{
		mustBet(t, 1, "winner", "1"),
		mustBet(t, 1, "loser", "7"),
	}); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	tornDown, err := c.RecordFinish(context.Background(), 1)
	if err != nil || tornDown {
		t.Fatalf("RecordFinish: tornDown=%v err=%v", tornDown, err)
	}

	got := c.WinnersFor(1)
	if len(got) != 1 || got[0] != "winner" {
		t.Fatalf("expected [winner], got %+v", got)
	}
}
