package model

import (
	"strconv"
	"time"
)

// Seat types accepted by the layout component.
const (
	SeatTypeStandard   = "STANDARD"
	SeatTypeVIP        = "VIP"
	SeatTypeAccessible = "ACCESSIBLE"
)

// Seat describes a physical seat in a room.  Seats are uniquely
// identified by their room, row label and seat number.  The same
// physical seat is reused by every showtime scheduled in the room, so
// it carries no availability state of its own.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room to which this seat belongs.
//  RowLabel   – letter code designating the row (A, B, ..., AA).
//  SeatNumber – 1-based column index within the row.
//  SeatType   – seat class (STANDARD, VIP, ACCESSIBLE).
//  CreatedAt  – creation timestamp.
type Seat struct {
	ID         uint64    `db:"id" json:"id"`                   // seats.id
	RoomID     uint64    `db:"room_id" json:"room_id"`         // seats.room_id
	RowLabel   string    `db:"row_label" json:"row_label"`     // seats.row_label
	SeatNumber uint32    `db:"seat_number" json:"seat_number"` // seats.seat_number
	SeatType   string    `db:"seat_type" json:"seat_type"`     // seats.seat_type
	CreatedAt  time.Time `db:"created_at" json:"-"`            // seats.created_at
}

// Label returns the display number of the seat, e.g. "A1".
func (s Seat) Label() string {
	return s.RowLabel + strconv.FormatUint(uint64(s.SeatNumber), 10)
}
