package model

// Room is the catalog record of a screening room.  It is owned by the
// catalog collaborator; this service only reads it and keeps the grid
// dimensions in sync when the seat layout changes.
type Room struct {
	ID       uint64 `db:"id"`        // rooms.id
	Name     string `db:"name"`      // rooms.name
	SeatRows uint32 `db:"seat_rows"` // rooms.seat_rows
	SeatCols uint32 `db:"seat_cols"` // rooms.seat_cols
}
