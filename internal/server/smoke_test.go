package server

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/fedepagnotta/lotteryd/internal/bet"
	"github.com/fedepagnotta/lotteryd/internal/draw"
	"github.com/fedepagnotta/lotteryd/internal/store"
	"github.com/fedepagnotta/lotteryd/internal/wire"
)

type memStore struct{ bets []bet.Bet }

func (m *memStore) AppendBatch(ctx context.Context, bets []bet.Bet) error {
	m.bets = append(m.bets, bets...)
	return nil
}
func (m *memStore) LoadAll(ctx context.Context) ([]bet.Bet, error) {
	out := make([]bet.Bet, len(m.bets))
	copy(out, m.bets)
	return out, nil
}
func (m *memStore) Close() error { return nil }

var _ store.Store = (*memStore)(nil)

func dial(t *testing.T, ctx context.Context, addr string) net.Conn {
	t.Helper()
	d := net.Dialer{Timeout: time.Second}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return c
}

// TestSmokeServer drives a single agency end to end: accept, a bet batch, a
// FINISHED, and a REQUEST_WINNERS, over a real loopback listener.
func TestSmokeServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := &memStore{}
	coord := draw.NewCoordinator(1, s)
	srv := NewServer(WithListenAddr(":0"), WithCoordinator(coord), WithStore(s))

	go func() {
		if err := srv.Serve(ctx); err != nil {
			t.Logf("Serve returned: %v", err)
		}
	}()
	select {
	case <-srv.Ready():
	case <-time.After(1 * time.Second):
		t.Fatal("server did not become ready")
	}

	conn := dial(t, ctx, srv.Addr())
	defer conn.Close()

	if err := wire.Send(conn, []byte("1|Juan|Perez|30123456|1990-05-01|7\n")); err != nil {
		t.Fatalf("send batch: %v", err)
	}
	resp, err := wire.Recv(conn)
	if err != nil || string(resp) != "BATCH_RECEIVED\n" {
		t.Fatalf("expected BATCH_RECEIVED, got %q err=%v", resp, err)
	}

	if err := wire.Send(conn, []byte("1|FINISHED\n")); err != nil {
		t.Fatalf("send finished: %v", err)
	}
	resp, err = wire.Recv(conn)
	if err != nil || string(resp) != "FINISHED RECEIVE\n" {
		t.Fatalf("expected FINISHED RECEIVE, got %q err=%v", resp, err)
	}

	if err := wire.Send(conn, []byte("1|REQUEST_WINNERS\n")); err != nil {
		t.Fatalf("send request winners: %v", err)
	}
	resp, err = wire.Recv(conn)
	if err != nil || string(resp) != "WINNERS:30123456\n" {
		t.Fatalf("expected WINNERS:30123456, got %q err=%v", resp, err)
	}
}

// TestSmokeConcurrentAgencies drives all N agencies concurrently through
// batch -> FINISHED -> REQUEST_WINNERS, verifying the barrier releases all of
// them only once every agency has finished.
func TestSmokeConcurrentAgencies(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const n = 4
	s := &memStore{}
	coord := draw.NewCoordinator(n, s)
	srv := NewServer(WithListenAddr(":0"), WithCoordinator(coord), WithStore(s))

	go srv.Serve(ctx)
	select {
	case <-srv.Ready():
	case <-time.After(1 * time.Second):
		t.Fatal("server did not become ready")
	}

	results := make(chan error, n)
	for agency := 1; agency <= n; agency++ {
		go func(agency int) {
			conn := dial(t, ctx, srv.Addr())
			defer conn.Close()

			id := strconv.Itoa(agency)
			betLine := []byte(id + "|First|Last|doc-" + id + "|2000-01-01|7\n")
			if err := wire.Send(conn, betLine); err != nil {
				results <- err
				return
			}
			if _, err := wire.Recv(conn); err != nil {
				results <- err
				return
			}
			if err := wire.Send(conn, []byte(id+"|FINISHED\n")); err != nil {
				results <- err
				return
			}
			if _, err := wire.Recv(conn); err != nil {
				results <- err
				return
			}
			if err := wire.Send(conn, []byte(id+"|REQUEST_WINNERS\n")); err != nil {
				results <- err
				return
			}
			resp, err := wire.Recv(conn)
			if err != nil {
				results <- err
				return
			}
			if !bytes.Equal(resp, []byte("WINNERS:doc-"+id+"\n")) {
				results <- errUnexpected(resp)
				return
			}
			results <- nil
		}(agency)
	}

	for i := 0; i < n; i++ {
		select {
		case err := <-results:
			if err != nil {
				t.Fatalf("agency goroutine failed: %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for agency goroutines")
		}
	}
}

// TestGracefulShutdown_ClosesListenerAndLiveConnections verifies Shutdown
// force-closes connections blocked in a read and unblocks Accept.
func TestGracefulShutdown_ClosesListenerAndLiveConnections(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := &memStore{}
	coord := draw.NewCoordinator(2, s) // never reaches quorum in this test
	srv := NewServer(WithListenAddr(":0"), WithCoordinator(coord), WithStore(s))

	go srv.Serve(ctx)
	select {
	case <-srv.Ready():
	case <-time.After(1 * time.Second):
		t.Fatal("server did not become ready")
	}

	conn := dial(t, ctx, srv.Addr())
	defer conn.Close()

	sdCtx, sdCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer sdCancel()
	if err := srv.Shutdown(sdCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 8)
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("expected connection to be closed after shutdown")
	}

	if _, err := net.DialTimeout("tcp", srv.Addr(), time.Second); err == nil {
		t.Fatal("expected listener to reject new connections after shutdown")
	}
}

type respError struct{ resp []byte }

func (e respError) Error() string { return "unexpected response: " + string(e.resp) }

func errUnexpected(resp []byte) error { return respError{resp: resp} }
