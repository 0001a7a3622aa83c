package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error taxonomy shared by every service.  Handlers map these onto HTTP
// status codes with errors.Is / errors.As.
var (
	// ErrInvalidRequest marks malformed input.  Not worth retrying.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound marks an unknown or soft-deleted referenced entity.
	ErrNotFound = errors.New("not found")
	// ErrSeatConflict is wrapped by *SeatConflictError.
	ErrSeatConflict = errors.New("seats unavailable")
	// ErrStorageFailure marks a transient infrastructure error; the whole
	// call may be retried.
	ErrStorageFailure = errors.New("storage failure")
	// ErrLayoutLocked is returned when a room's grid cannot be regenerated
	// because showtimes in the room already have seat assignments.
	ErrLayoutLocked = errors.New("seat layout locked by existing bookings")
	// ErrPaymentSettled is returned when settling a payment that is no
	// longer pending, or a second success for the same booking.
	ErrPaymentSettled = errors.New("payment already settled")
)

// SeatConflictError lists the requested seats that are already held.
// The caller should refresh availability and let the user pick again;
// resubmitting the same seat set will conflict again.
type SeatConflictError struct {
	SeatIDs []uint64
}

func (e *SeatConflictError) Error() string {
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	return fmt.Sprintf("%s: [%s]", ErrSeatConflict, strings.Join(ids, ","))
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// storageErr keeps the driver error in the chain so that callers can
// still inspect it, e.g. for retryable lock conflicts.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
