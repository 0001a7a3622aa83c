package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// RoomRepo gives the layout component access to room rows.  Rooms are
// created by the catalog; only their grid dimensions are written here.
type RoomRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewRoomRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *RoomRepo {
	return &RoomRepo{db: db, getter: getter}
}

// GetByID returns a room or ErrRoomNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	return r.get(ctx, `SELECT id, name, seat_rows, seat_cols FROM rooms WHERE id = ?`, id)
}

// GetForUpdate returns a room and locks its row until the surrounding
// transaction ends, serialising layout changes of the same room.
func (r *RoomRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Room, error) {
	return r.get(ctx, `SELECT id, name, seat_rows, seat_cols FROM rooms WHERE id = ? FOR UPDATE`, id)
}

func (r *RoomRepo) get(ctx context.Context, q string, id uint64) (*model.Room, error) {
	var room model.Room
	if err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &room, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("select room %d: %w", id, err)
	}
	return &room, nil
}

// UpdateDimensions stores the grid size of a room.
func (r *RoomRepo) UpdateDimensions(ctx context.Context, id uint64, rows, cols uint32) error {
	const q = `UPDATE rooms SET seat_rows = ?, seat_cols = ? WHERE id = ?`
	if _, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, q, rows, cols, id); err != nil {
		return fmt.Errorf("update room %d dimensions: %w", id, err)
	}
	return nil
}
