// Package protocol converts a decoded frame payload into one of three typed
// requests (bet batch, FINISHED, REQUEST_WINNERS) and formats responses,
// following the wire grammar fixed by §4.2: records separated by '|', lines
// separated by '\n'.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fedepagnotta/lotteryd/internal/lotteryerr"
)

// Verb names recognized in a control request.
const (
	VerbFinished        = "FINISHED"
	VerbRequestWinners  = "REQUEST_WINNERS"
	fieldsPerBetRecord  = 6
	fieldsPerControlMsg = 2
)

// Kind distinguishes the three request shapes.
type Kind int

const (
	// KindBetBatch carries one or more raw bet records, still unparsed field-wise.
	KindBetBatch Kind = iota
	KindFinished
	KindRequestWinners
)

// Request is the classified form of a decoded frame payload.
type Request struct {
	Kind   Kind
	Agency int    // set for KindFinished / KindRequestWinners
	Lines  []string // set for KindBetBatch: non-empty raw "a|b|c|d|e|f" lines
}

// BetFields is one unparsed, but field-count-validated, bet record.
type BetFields struct {
	Agency, FirstName, LastName, Document, Birthdate, Number string
}

// Classify splits payload on '\n' and determines whether it is a control
// request or a bet batch, per the classification rule in §4.2: exactly 2
// lines with an empty second line and a 2-field first line whose second
// field is a known verb is a control request; otherwise it is a bet batch.
func Classify(payload []byte) (Request, error) {
	text := string(payload)
	lines := strings.Split(text, "\n")

	if len(lines) == fieldsPerControlMsg && lines[1] == "" {
		parts := strings.Split(lines[0], "|")
		if len(parts) == fieldsPerControlMsg && parts[0] != "" && parts[1] != "" {
			agency, agencyErr := parseAgency(parts[0])
			switch parts[1] {
			case VerbFinished:
				if agencyErr != nil {
					return Request{}, fmt.Errorf("%w: %v", lotteryerr.ErrProtocol, agencyErr)
				}
				return Request{Kind: KindFinished, Agency: agency}, nil
			case VerbRequestWinners:
				if agencyErr != nil {
					return Request{}, fmt.Errorf("%w: %v", lotteryerr.ErrProtocol, agencyErr)
				}
				return Request{Kind: KindRequestWinners, Agency: agency}, nil
			}
		}
	}

	nonEmpty := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return Request{}, fmt.Errorf("%w: empty batch", lotteryerr.ErrProtocol)
	}
	return Request{Kind: KindBetBatch, Lines: nonEmpty}, nil
}

func parseAgency(field string) (int, error) {
	n, err := strconv.Atoi(field)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid agency %q", field)
	}
	return n, nil
}

// ParseBetLine splits one raw bet-record line on '|'. It returns an error if
// the field count is not exactly six; it does not itself validate field
// contents (bet.New does, per record).
func ParseBetLine(line string) (BetFields, error) {
	parts := strings.Split(line, "|")
	if len(parts) != fieldsPerBetRecord {
		return BetFields{}, fmt.Errorf("%w: want %d fields, got %d", lotteryerr.ErrProtocol, fieldsPerBetRecord, len(parts))
	}
	return BetFields{
		Agency:    parts[0],
		FirstName: parts[1],
		LastName:  parts[2],
		Document:  parts[3],
		Birthdate: parts[4],
		Number:    parts[5],
	}, nil
}

// Response formatters. Every response is a single newline-terminated line.

func BatchReceived() []byte { return []byte("BATCH_RECEIVED\n") }
func BatchFailed() []byte   { return []byte("BATCH_FAILED\n") }
func FinishedReceive() []byte { return []byte("FINISHED RECEIVE\n") }
func NotReady() []byte      { return []byte("NOT_READY\n") }

// Winners formats the WINNERS: response, '|'-joining documents in the given order.
func Winners(documents []string) []byte {
	return []byte(fmt.Sprintf("WINNERS:%s\n", strings.Join(documents, "|")))
}
