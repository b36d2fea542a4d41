// Package lotteryerr holds the sentinel errors shared across the server,
// wrapped at call sites with fmt.Errorf("%w: ...") so callers can classify
// failures via errors.Is.
package lotteryerr

import "errors"

var (
	// ErrListen wraps a failure to bind the listening socket.
	ErrListen = errors.New("listen")
	// ErrAccept wraps a fatal Accept() failure (not a transient one).
	ErrAccept = errors.New("accept")
	// ErrConnRead wraps a transport-level read failure mid-frame.
	ErrConnRead = errors.New("conn_read")
	// ErrConnWrite wraps a transport-level write failure.
	ErrConnWrite = errors.New("conn_write")
	// ErrFrameTooLarge marks a declared frame length over the protocol cap.
	ErrFrameTooLarge = errors.New("frame_too_large")
	// ErrProtocol marks a malformed payload: wrong field count or unknown verb.
	ErrProtocol = errors.New("protocol_violation")
	// ErrInvalidBet marks a bet record failing its construction invariants.
	ErrInvalidBet = errors.New("invalid_bet")
	// ErrStorage wraps a bet-store I/O failure.
	ErrStorage = errors.New("storage")
	// ErrShutdown marks a barrier or listener torn down by graceful shutdown.
	ErrShutdown = errors.New("shutdown")
)

// MetricLabel maps a wrapped sentinel error to a bounded-cardinality metrics
// label.
func MetricLabel(err error) string {
	switch {
	case errors.Is(err, ErrConnRead):
		return "conn_read"
	case errors.Is(err, ErrConnWrite):
		return "conn_write"
	case errors.Is(err, ErrFrameTooLarge):
		return "frame_too_large"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrAccept), errors.Is(err, ErrListen):
		return "listener"
	case errors.Is(err, ErrShutdown):
		return "shutdown"
	default:
		return "other"
	}
}
