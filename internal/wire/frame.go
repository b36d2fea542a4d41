// Package wire implements the length-prefixed framing layer: a 4-byte
// big-endian unsigned length followed by exactly that many payload bytes.
// It carries no knowledge of payload semantics.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fedepagnotta/lotteryd/internal/lotteryerr"
)

// MaxFrameSize bounds the declared payload length accepted by Recv. The wire
// protocol itself does not cap frame size; this is the protective cap §4.1
// recommends.
const MaxFrameSize = 1 << 20 // 1 MiB

// Send writes a length-prefixed frame: 4-byte BE length + payload. It writes
// the entire frame or returns an error; io.Writer reports any short write as
// an error, so each part is written with a single Write call.
func Send(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: write length: %v", lotteryerr.ErrConnWrite, err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: write payload: %v", lotteryerr.ErrConnWrite, err)
	}
	return nil
}

// Recv reads one length-prefixed frame from r. It returns io.EOF if the peer
// closed cleanly before any byte of the length prefix arrived (the "closed"
// signal), a wrapped ErrConnRead transport error if the stream ends
// mid-frame, or ErrFrameTooLarge if the declared length exceeds MaxFrameSize.
func Recv(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: read length: %v", lotteryerr.ErrConnRead, err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: declared length %d exceeds cap %d", lotteryerr.ErrFrameTooLarge, length, MaxFrameSize)
	}
	if length == 0 {
		return []byte{}, nil
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", lotteryerr.ErrConnRead, err)
	}
	return payload, nil
}
