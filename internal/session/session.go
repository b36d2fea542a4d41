// Package session implements the per-connection state machine: AwaitRequest,
// FinishedAckSent, Terminal. One Handle call owns one client connection for
// its entire lifetime, consuming framed messages and dispatching to the
// shared draw coordinator.
package session

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/fedepagnotta/lotteryd/internal/bet"
	"github.com/fedepagnotta/lotteryd/internal/draw"
	"github.com/fedepagnotta/lotteryd/internal/logging"
	"github.com/fedepagnotta/lotteryd/internal/metrics"
	"github.com/fedepagnotta/lotteryd/internal/protocol"
	"github.com/fedepagnotta/lotteryd/internal/wire"
)

// Handler runs the session state machine for one client connection.
type Handler struct {
	Coordinator   *draw.Coordinator
	Running       *atomic.Bool
	StrictWinners bool
}

// NewHandler constructs a Handler bound to the given coordinator and
// shutdown flag. strictWinners selects the §10.4 compatibility mode, which
// replies NOT_READY instead of an empty winners list to a premature
// REQUEST_WINNERS.
func NewHandler(coord *draw.Coordinator, running *atomic.Bool, strictWinners bool) *Handler {
	return &Handler{Coordinator: coord, Running: running, StrictWinners: strictWinners}
}

// Handle drives one connection's conversation to completion: AwaitRequest
// loops processing bet batches and FINISHED (replying once the draw barrier
// releases), and leaves to Terminal on REQUEST_WINNERS, on a torn-down
// barrier, and on any transport or protocol error or shutdown signal. It returns nil on every clean exit path
// (including peer close); the caller is responsible for closing rw.
func (h *Handler) Handle(ctx context.Context, rw io.ReadWriter) error {
	for {
		if !h.Running.Load() {
			return nil
		}

		payload, err := wire.Recv(rw)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			logging.L().Errorf("action: client_connection | result: fail | error: %v", err)
			return err
		}

		req, err := protocol.Classify(payload)
		if err != nil {
			logging.L().Errorf("action: apuesta_recibida | result: fail | error: %v", err)
			return nil
		}

		switch req.Kind {
		case protocol.KindBetBatch:
			if err := h.handleBetBatch(ctx, rw, req); err != nil {
				return err
			}
		case protocol.KindFinished:
			done, err := h.handleFinished(ctx, rw, req.Agency)
			if err != nil || done {
				return err
			}
		case protocol.KindRequestWinners:
			return h.handleRequestWinners(rw, req.Agency)
		}
	}
}

func (h *Handler) handleBetBatch(ctx context.Context, rw io.Writer, req protocol.Request) error {
	var bets []bet.Bet
	failures := 0

	for _, line := range req.Lines {
		if !h.Running.Load() {
			return nil // shutdown mid-batch: abort silently, Terminal
		}
		fields, err := protocol.ParseBetLine(line)
		if err != nil {
			failures++
			continue
		}
		b, err := bet.New(fields.Agency, fields.FirstName, fields.LastName, fields.Document, fields.Birthdate, fields.Number)
		if err != nil {
			failures++
			continue
		}
		bets = append(bets, b)
	}

	if len(bets) > 0 {
		if err := h.Coordinator.AppendBatch(ctx, bets); err != nil {
			logging.L().Errorf("action: apuesta_almacenada | result: fail | error: %v", err)
			failures += len(bets)
		} else {
			logging.L().Infof("action: apuesta_almacenada | result: success | cantidad: %d", len(bets))
			metrics.BetsStored.Add(float64(len(bets)))
		}
	}

	resp := protocol.BatchReceived()
	if failures > 0 {
		resp = protocol.BatchFailed()
		logging.L().Errorf("action: apuesta_rechazada | result: fail | cantidad: %d", failures)
		metrics.BetsRejected.Add(float64(failures))
		metrics.BatchesFailed.Inc()
	} else {
		metrics.BatchesReceived.Inc()
	}
	return wire.Send(rw, resp)
}

// handleFinished invokes RecordFinish and reports whether the connection
// should terminate immediately. A clean FINISHED RECEIVE reply returns to
// AwaitRequest (done=false); a torn-down barrier terminates without a reply.
func (h *Handler) handleFinished(ctx context.Context, rw io.Writer, agency int) (done bool, err error) {
	tornDown, err := h.Coordinator.RecordFinish(ctx, agency)
	if err != nil {
		logging.L().Errorf("action: finished | result: fail | agency: %d | error: %v", agency, err)
		return true, err
	}
	if tornDown {
		return true, nil // shutdown in progress: no response
	}
	if err := wire.Send(rw, protocol.FinishedReceive()); err != nil {
		return true, err
	}
	return false, nil
}

func (h *Handler) handleRequestWinners(rw io.Writer, agency int) error {
	if h.StrictWinners && h.Coordinator.Quorum() < h.Coordinator.Total() {
		return wire.Send(rw, protocol.NotReady())
	}
	docs := h.Coordinator.WinnersFor(agency)
	logging.L().Infof("action: consulta_ganadores | result: success | cant_ganadores: %d", len(docs))
	metrics.WinnersServed.Inc()
	return wire.Send(rw, protocol.Winners(docs))
}
