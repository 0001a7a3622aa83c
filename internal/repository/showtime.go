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

// ShowtimeRepo reads showtimes.  Soft-deleted showtimes are invisible.
type ShowtimeRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

func NewShowtimeRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *ShowtimeRepo {
	return &ShowtimeRepo{db: db, getter: getter}
}

const showtimeQuery = `SELECT id, movie_id, room_id, time_slot_id, show_date, ticket_price, deleted_at
	           FROM showtimes
	           WHERE id = ? AND deleted_at IS NULL`

// GetByID returns a scheduled showtime or ErrShowtimeNotFound.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return r.get(ctx, showtimeQuery, id)
}

// GetForShare is GetByID under a shared row lock.  Inside a transaction it
// keeps the showtime from being soft-deleted until commit.
func (r *ShowtimeRepo) GetForShare(ctx context.Context, id uint64) (*model.Showtime, error) {
	return r.get(ctx, showtimeQuery+` FOR SHARE`, id)
}

func (r *ShowtimeRepo) get(ctx context.Context, q string, id uint64) (*model.Showtime, error) {
	var st model.Showtime
	if err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &st, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, fmt.Errorf("select showtime %d: %w", id, err)
	}
	return &st, nil
}
