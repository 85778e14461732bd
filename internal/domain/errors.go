package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrNotOwner             = errors.New("not owner")
	ErrStateConflict        = errors.New("invalid state for operation")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnavailable          = errors.New("backend unavailable")
)

// SeatConflictError reports the exact seats another holder or order already
// owns, so callers can offer alternatives instead of a blind retry.
type SeatConflictError struct {
	ShowID string
	Seats  []string
}

func NewSeatConflictError(showID string, seats []string) *SeatConflictError {
	sorted := make([]string, len(seats))
	copy(sorted, seats)
	sort.Strings(sorted)
	return &SeatConflictError{ShowID: showID, Seats: sorted}
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats unavailable for show %s: %s", e.ShowID, strings.Join(e.Seats, ", "))
}

func IsSeatConflict(err error) bool {
	var sc *SeatConflictError
	return errors.As(err, &sc)
}
