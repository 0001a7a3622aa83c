package repository

import (
	"context"
	"fmt"
	"strings"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// SeatRepo reads and writes the seats of a room.
type SeatRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

// NewSeatRepo constructs a SeatRepo.
func NewSeatRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *SeatRepo {
	return &SeatRepo{db: db, getter: getter}
}

// ListByRoom returns every seat of a room ordered by row then seat
// number.  Row labels are ordered by length first so that "Z" sorts
// before "AA".
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	const q = `SELECT id, room_id, row_label, seat_number, seat_type, created_at
	           FROM seats
	           WHERE room_id = ?
	           ORDER BY CHAR_LENGTH(row_label), row_label, seat_number`
	var seats []model.Seat
	if err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &seats, q, roomID); err != nil {
		return nil, fmt.Errorf("select seats of room %d: %w", roomID, err)
	}
	return seats, nil
}

// CreateBulk inserts seats in a single statement.  A clash with an
// existing position yields ErrSeatExists.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO seats (room_id, row_label, seat_number, seat_type) VALUES `)
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, s.RoomID, s.RowLabel, s.SeatNumber, s.SeatType)
	}
	if _, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, sb.String(), args...); err != nil {
		if duplicateKey(err, keySeatsRoomPosition) {
			return ErrSeatExists
		}
		return fmt.Errorf("insert seats: %w", err)
	}
	return nil
}

// DeleteByRoom removes every seat of a room.  Seats still referenced by
// seat assignments make the statement fail with ErrSeatInUse.
func (r *SeatRepo) DeleteByRoom(ctx context.Context, roomID uint64) error {
	const q = `DELETE FROM seats WHERE room_id = ?`
	if _, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, q, roomID); err != nil {
		if rowReferenced(err) {
			return ErrSeatInUse
		}
		return fmt.Errorf("delete seats of room %d: %w", roomID, err)
	}
	return nil
}
