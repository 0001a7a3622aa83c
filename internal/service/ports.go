package service

import (
	"context"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/queue"
)

// TxRunner runs fn in a transaction carried by the context.  Storage
// calls made with that context join it.
type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// ShowtimeFinder resolves scheduled showtimes.
type ShowtimeFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
}

// ShowtimeLocker also pins a showtime for the rest of the transaction.
type ShowtimeLocker interface {
	ShowtimeFinder
	GetForShare(ctx context.Context, id uint64) (*model.Showtime, error)
}

// SeatCatalog lists the physical seats of a room.
type SeatCatalog interface {
	ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error)
}

// HoldReader reports which seats of a showtime are held.
type HoldReader interface {
	ActiveSeatIDs(ctx context.Context, showtimeID uint64, among []uint64) ([]uint64, error)
}

// Ledger is the reservation ledger used by the booking coordinator.
type Ledger interface {
	HoldReader
	Create(ctx context.Context, b *model.Booking) error
	CreateAssignments(ctx context.Context, bookingID, showtimeID uint64, seatIDs []uint64) error
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	SeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error)
}

// BookingFinder looks bookings up by id.
type BookingFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
}

// PaymentStore persists payment attempts.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uint64) (*model.Payment, error)
	ListByBooking(ctx context.Context, bookingID uint64) ([]model.Payment, error)
	Settle(ctx context.Context, id uint64, status string) error
}

// RoomStore reads rooms and keeps their grid dimensions.
type RoomStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Room, error)
	UpdateDimensions(ctx context.Context, id uint64, rows, cols uint32) error
}

// SeatStore is the writable seat catalog used by the layout component.
type SeatStore interface {
	SeatCatalog
	CreateBulk(ctx context.Context, seats []model.Seat) error
	DeleteByRoom(ctx context.Context, roomID uint64) error
}

// AssignmentChecker tells whether a room's seats are referenced by any
// booking.
type AssignmentChecker interface {
	HasAssignmentsInRoom(ctx context.Context, roomID uint64) (bool, error)
}

// EventPublisher delivers domain events after commit.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}
