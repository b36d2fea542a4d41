// Package bet defines the Bet record and its construction invariants.
package bet

import (
	"fmt"
	"strconv"

	"github.com/fedepagnotta/lotteryd/internal/lotteryerr"
)

// ErrInvalidBet marks a bet record failing its construction invariants.
var ErrInvalidBet = lotteryerr.ErrInvalidBet

// Bet is an immutable lottery entry submitted by an agency.
type Bet struct {
	Agency    int
	FirstName string
	LastName  string
	Document  string
	Birthdate string
	Number    string
}

// New validates fields and constructs a Bet. agency must be a positive integer
// (given as a string, as it arrives on the wire); number must parse as an integer.
// All fields must be non-empty.
func New(agencyField, firstName, lastName, document, birthdate, number string) (Bet, error) {
	if agencyField == "" || firstName == "" || lastName == "" || document == "" || birthdate == "" || number == "" {
		return Bet{}, fmt.Errorf("%w: empty field", ErrInvalidBet)
	}
	agency, err := strconv.Atoi(agencyField)
	if err != nil || agency <= 0 {
		return Bet{}, fmt.Errorf("%w: invalid agency %q", ErrInvalidBet, agencyField)
	}
	if _, err := strconv.Atoi(number); err != nil {
		return Bet{}, fmt.Errorf("%w: invalid number %q", ErrInvalidBet, number)
	}
	return Bet{
		Agency:    agency,
		FirstName: firstName,
		LastName:  lastName,
		Document:  document,
		Birthdate: birthdate,
		Number:    number,
	}, nil
}
