package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// BookingRepo is the reservation ledger: bookings and the seat
// assignments that tie them to seats of a showtime.  The ledger is the
// single source of truth for which seats are held.
type BookingRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

// NewBookingRepo constructs a BookingRepo.
func NewBookingRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *BookingRepo {
	return &BookingRepo{db: db, getter: getter}
}

const bookingColumns = `id, user_id, showtime_id, total_price, status, idempotency_key, created_at, updated_at, deleted_at`

// Create inserts a booking and populates its ID.  The status defaults
// to booked.  ErrDuplicateIdempotencyKey is returned when another
// booking already carries b.IdempotencyKey.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingStatusBooked
	}
	const q = `INSERT INTO bookings (user_id, showtime_id, total_price, status, idempotency_key)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, q,
		b.UserID, b.ShowtimeID, b.TotalPrice, b.Status, b.IdempotencyKey)
	if err != nil {
		if duplicateKey(err, keyBookingsIdempotency) {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking last insert id: %w", err)
	}
	b.ID = uint64(id)
	return nil
}

// CreateAssignments inserts one active assignment per seat in a single
// statement.  Seats are written in ascending id order so concurrent
// bookings acquire index locks in the same order.  If any seat already
// has an active assignment for the showtime the whole statement fails
// with ErrSeatTaken.
func (r *BookingRepo) CreateAssignments(ctx context.Context, bookingID, showtimeID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	sorted := append([]uint64(nil), seatIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sb strings.Builder
	sb.WriteString(`INSERT INTO seat_assignments (booking_id, showtime_id, seat_id, active) VALUES `)
	args := make([]interface{}, 0, len(sorted)*3)
	for i, seatID := range sorted {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?, ?, ?, 1)")
		args = append(args, bookingID, showtimeID, seatID)
	}
	if _, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, sb.String(), args...); err != nil {
		if duplicateKey(err, keySeatAssignmentsActive) {
			return ErrSeatTaken
		}
		return fmt.Errorf("insert seat assignments: %w", err)
	}
	return nil
}

// ActiveSeatIDs returns, in ascending order, the seats of a showtime that
// are held by an active booking.  When among is non-empty only those
// seats are considered.  Held means exactly what uq_seat_assignments_active
// enforces: an assignment with active = 1.  The booking state is folded
// into that flag by trg_bookings_release_seats.
func (r *BookingRepo) ActiveSeatIDs(ctx context.Context, showtimeID uint64, among []uint64) ([]uint64, error) {
	query := `SELECT seat_id
	          FROM seat_assignments
	          WHERE showtime_id = ?
	            AND active = 1`
	args := []interface{}{showtimeID}
	if len(among) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND seat_id IN (?)`, showtimeID, among)
		if err != nil {
			return nil, fmt.Errorf("expand seat ids: %w", err)
		}
	}
	query += ` ORDER BY seat_id`

	tr := r.getter.DefaultTrOrDB(ctx, r.db)
	ids := []uint64{}
	if err := sqlx.SelectContext(ctx, tr, &ids, tr.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select active seats of showtime %d: %w", showtimeID, err)
	}
	return ids, nil
}

// GetByID returns a booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// FindByIdempotencyKey returns the booking created with key or
// ErrBookingNotFound.
func (r *BookingRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key = ?`, key)
}

func (r *BookingRepo) get(ctx context.Context, q string, arg interface{}) (*model.Booking, error) {
	var b model.Booking
	if err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &b, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("select booking: %w", err)
	}
	return &b, nil
}

// SeatIDs lists the seats assigned to a booking in ascending order.
func (r *BookingRepo) SeatIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
	const q = `SELECT seat_id FROM seat_assignments WHERE booking_id = ? ORDER BY seat_id`
	ids := []uint64{}
	if err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &ids, q, bookingID); err != nil {
		return nil, fmt.Errorf("select seats of booking %d: %w", bookingID, err)
	}
	return ids, nil
}

// HasAssignmentsInRoom reports whether any showtime in the room has at
// least one seat assignment, active or not.
func (r *BookingRepo) HasAssignmentsInRoom(ctx context.Context, roomID uint64) (bool, error) {
	const q = `SELECT EXISTS (
	             SELECT 1
	             FROM seat_assignments sa
	             JOIN showtimes s ON s.id = sa.showtime_id
	             WHERE s.room_id = ?
	           )`
	var exists bool
	if err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &exists, q, roomID); err != nil {
		return false, fmt.Errorf("check assignments of room %d: %w", roomID, err)
	}
	return exists, nil
}
