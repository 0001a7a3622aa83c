// Package repository defines the MySQL data access layer.  Every
// repository resolves its executor through trmsqlx.CtxGetter, so a
// method called inside TxManager.Do joins the caller's transaction and
// runs against the pool otherwise.
//
// The sentinel errors below let services distinguish failure scenarios
// without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrShowtimeNotFound is returned when a showtime does not exist or
	// has been soft-deleted.
	ErrShowtimeNotFound = errors.New("showtime not found")
	// ErrRoomNotFound is returned when a room lookup yields no rows.
	ErrRoomNotFound = errors.New("room not found")
	// ErrBookingNotFound is returned when a booking lookup yields no rows.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrPaymentNotFound is returned when a payment lookup yields no rows.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrSeatTaken signals that inserting a seat assignment violated the
	// active (showtime, seat) unique index, i.e. another booking won the seat.
	ErrSeatTaken = errors.New("seat already assigned for showtime")
	// ErrDuplicateIdempotencyKey signals a concurrent booking with the same
	// idempotency key committed first.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	// ErrPaymentAlreadySettled is returned when a payment is no longer
	// pending or its booking already has a successful payment.
	ErrPaymentAlreadySettled = errors.New("payment already settled")
	// ErrSeatExists is returned when a layout change would duplicate a seat
	// position in a room.
	ErrSeatExists = errors.New("seat already exists")
	// ErrSeatInUse is returned when seats cannot be removed because seat
	// assignments still reference them.
	ErrSeatInUse = errors.New("seat referenced by bookings")
)

// MySQL server error numbers the repositories react to.
const (
	errDuplicateEntry   = 1062
	errLockWaitTimeout  = 1205
	errDeadlock         = 1213
	errRowIsReferenced  = 1451
	errRowIsReferenced2 = 1217
)

// Unique index names, as declared in database/schema.go.
const (
	keySeatAssignmentsActive = "uq_seat_assignments_active"
	keyBookingsIdempotency   = "uq_bookings_idempotency_key"
	keyPaymentsSingleSuccess = "uq_payments_single_success"
	keySeatsRoomPosition     = "uq_seats_room_position"
)

// duplicateKey reports whether err is a duplicate-entry error on the given
// unique index.  MySQL 8 prefixes the key with the table name
// ("for key 'bookings.uq_bookings_idempotency_key'"), 5.7 does not.
func duplicateKey(err error, key string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDuplicateEntry {
		return false
	}
	return strings.Contains(me.Message, key+"'")
}

func rowReferenced(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == errRowIsReferenced || me.Number == errRowIsReferenced2)
}

// IsRetryable reports whether err is a transient lock conflict (deadlock
// or lock wait timeout).  InnoDB has already rolled the statement or the
// whole transaction back, so the caller may rerun the transaction.
func IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errDeadlock || me.Number == errLockWaitTimeout
}
