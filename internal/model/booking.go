package model

import "time"

// Booking statuses.
const (
	BookingStatusBooked    = "booked"
	BookingStatusCancelled = "cancelled"
)

// Booking records a customer's purchase of one or more seats for a
// showtime.  It is created in the same transaction as its seat
// assignments and its first payment, and is never hard-deleted.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – payer; nil for guest checkouts.
//  ShowtimeID     – showtime being booked.
//  TotalPrice     – amount charged for all seats.
//  Status         – booked or cancelled.
//  IdempotencyKey – client checkout attempt token, if supplied.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
//  DeletedAt      – soft delete timestamp.
type Booking struct {
	ID             uint64     `db:"id"`              // bookings.id
	UserID         *uint64    `db:"user_id"`         // bookings.user_id (nullable)
	ShowtimeID     uint64     `db:"showtime_id"`     // bookings.showtime_id
	TotalPrice     int64      `db:"total_price"`     // bookings.total_price
	Status         string     `db:"status"`          // bookings.status
	IdempotencyKey *string    `db:"idempotency_key"` // bookings.idempotency_key (nullable)
	CreatedAt      time.Time  `db:"created_at"`      // bookings.created_at
	UpdatedAt      time.Time  `db:"updated_at"`      // bookings.updated_at
	DeletedAt      *time.Time `db:"deleted_at"`      // bookings.deleted_at (nullable)
}

// SeatAssignment links one seat to one booking for one showtime.  Among
// active assignments the pair (ShowtimeID, SeatID) is unique.
type SeatAssignment struct {
	ID         uint64 `db:"id"`          // seat_assignments.id
	BookingID  uint64 `db:"booking_id"`  // seat_assignments.booking_id
	ShowtimeID uint64 `db:"showtime_id"` // seat_assignments.showtime_id
	SeatID     uint64 `db:"seat_id"`     // seat_assignments.seat_id
}
