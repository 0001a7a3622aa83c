package model

import "time"

// Showtime is a scheduled screening of a movie in a room for a given
// time slot and date.  At most one showtime exists per
// (room, time slot, date).  Cancelled showtimes are soft-deleted.
//
// Fields:
//  ID          – primary key identifier.
//  MovieID     – movie being screened.
//  RoomID      – room where the showtime takes place.
//  TimeSlotID  – catalog time slot.
//  ShowDate    – calendar date of the screening.
//  TicketPrice – price of one seat in the smallest currency unit.
//  DeletedAt   – soft delete timestamp (nil while scheduled).
type Showtime struct {
	ID          uint64     `db:"id"`           // showtimes.id
	MovieID     uint64     `db:"movie_id"`     // showtimes.movie_id
	RoomID      uint64     `db:"room_id"`      // showtimes.room_id
	TimeSlotID  uint64     `db:"time_slot_id"` // showtimes.time_slot_id
	ShowDate    time.Time  `db:"show_date"`    // showtimes.show_date
	TicketPrice int64      `db:"ticket_price"` // showtimes.ticket_price
	DeletedAt   *time.Time `db:"deleted_at"`   // showtimes.deleted_at (nullable)
}
