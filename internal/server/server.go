// Package server implements the acceptor/supervisor: it owns the listening
// socket, spawns one session-handler goroutine per accepted connection,
// tracks live connections so they can be force-closed at shutdown, and
// orchestrates graceful termination.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fedepagnotta/lotteryd/internal/draw"
	"github.com/fedepagnotta/lotteryd/internal/logging"
	"github.com/fedepagnotta/lotteryd/internal/lotteryerr"
	"github.com/fedepagnotta/lotteryd/internal/metrics"
	"github.com/fedepagnotta/lotteryd/internal/session"
	"github.com/fedepagnotta/lotteryd/internal/store"
)

// Server owns the TCP listener and coordinates the lifecycle of one session
// per accepted connection.
type Server struct {
	mu   sync.RWMutex
	addr string

	coordinator   *draw.Coordinator
	store         store.Store
	strictWinners bool
	logger        *logging.Logger

	running  atomic.Bool
	listener net.Listener

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	wg sync.WaitGroup

	readyOnce sync.Once
	readyCh   chan struct{}

	lastErrMu sync.Mutex
	lastErr   error
}

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

// NewServer constructs a Server ready to Serve once options are applied.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		conns:   make(map[net.Conn]struct{}),
		readyCh: make(chan struct{}),
		logger:  logging.L(),
	}
	s.running.Store(true)
	for _, o := range opts {
		o(s)
	}
	if s.addr == "" {
		s.addr = ":0"
	}
	return s
}

func WithListenAddr(a string) ServerOption { return func(s *Server) { s.addr = a } }
func WithCoordinator(c *draw.Coordinator) ServerOption {
	return func(s *Server) { s.coordinator = c }
}
func WithStore(st store.Store) ServerOption      { return func(s *Server) { s.store = st } }
func WithStrictWinners(strict bool) ServerOption { return func(s *Server) { s.strictWinners = strict } }
func WithLogger(l *logging.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Addr returns the bound address, valid once Ready() has closed.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

func (s *Server) setAddr(a string) { s.mu.Lock(); s.addr = a; s.mu.Unlock() }

// Ready closes once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.readyCh }

func (s *Server) setError(err error) {
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
}

// LastError returns the most recent fatal error recorded by Serve, if any.
func (s *Server) LastError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

// Serve binds the listening socket and accepts connections until the
// listener is closed (by Shutdown) or a fatal accept error occurs.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		wrap := fmt.Errorf("%w: %v", lotteryerr.ErrListen, err)
		metrics.Errors.WithLabelValues(lotteryerr.MetricLabel(wrap)).Inc()
		s.setError(wrap)
		return wrap
	}
	s.setAddr(ln.Addr().String())
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.readyCh) })
	s.logger.Infof("action: accept_connections | result: success | addr: %s", s.Addr())

	for s.running.Load() {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil // expected: listener closed by Shutdown
			}
			wrap := fmt.Errorf("%w: %v", lotteryerr.ErrAccept, err)
			metrics.Errors.WithLabelValues(lotteryerr.MetricLabel(wrap)).Inc()
			s.setError(wrap)
			return wrap
		}
		s.acceptClient(ctx, conn)
	}
	return nil
}

func (s *Server) acceptClient(ctx context.Context, conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
		_ = tcp.SetKeepAlivePeriod(30 * time.Second)
	}

	connID := uuid.NewString()
	metrics.ConnectionsAccepted.Inc()

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
	metrics.ActiveConnections.Inc()

	s.logger.Infof("action: client_connection | result: success | conn_id: %s | remote: %s", connID, conn.RemoteAddr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.releaseConn(conn)

		h := session.NewHandler(s.coordinator, &s.running, s.strictWinners)
		if err := h.Handle(ctx, conn); err != nil {
			s.logger.Errorf("action: client_connection | result: fail | conn_id: %s | error: %v", connID, err)
		}
	}()
}

func (s *Server) releaseConn(conn net.Conn) {
	_ = conn.Close()
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
	metrics.ActiveConnections.Dec()
}

// Shutdown flips the running flag, closes the listener (unblocking Accept),
// force-closes every live connection (unblocking any worker stuck in a
// read), tears down the coordinator's barrier (releasing any worker parked
// in RecordFinish), joins all workers, then closes the bet store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}

	s.connsMu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.connsMu.Unlock()

	if s.coordinator != nil {
		s.coordinator.TearDown()
	}

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", lotteryerr.ErrShutdown, ctx.Err())
	case <-done:
	}

	s.logger.Info("action: server_graceful_shutdown | result: success")

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("%w: close store: %v", lotteryerr.ErrStorage, err)
		}
	}
	return nil
}
