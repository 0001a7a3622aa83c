// Package queue carries booking events over RabbitMQ: the payloads, a
// publisher used by the API after commit and the consumer run by the
// worker process.
package queue

// BookingConfirmedQueue is the durable queue booking events are routed to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published after a booking commits.  It holds
// enough for downstream consumers to log or notify without querying the
// primary database.
type BookingConfirmedEvent struct {
	BookingID     uint64   `json:"booking_id"`
	PaymentID     uint64   `json:"payment_id"`
	UserID        *uint64  `json:"user_id,omitempty"`
	ShowtimeID    uint64   `json:"showtime_id"`
	RoomID        uint64   `json:"room_id"`
	SeatIDs       []uint64 `json:"seat_ids"`
	SeatLabels    []string `json:"seats"`
	TotalPrice    int64    `json:"total_price"`
	PaymentMethod string   `json:"payment_method"`
	ConfirmedAt   string   `json:"confirmed_at"`
}
