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

// PaymentRepo stores payment attempts.  Rows are never deleted and only
// their status moves, from pending to a final state.
type PaymentRepo struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
}

// NewPaymentRepo constructs a PaymentRepo.
func NewPaymentRepo(db *sqlx.DB, getter *trmsqlx.CtxGetter) *PaymentRepo {
	return &PaymentRepo{db: db, getter: getter}
}

const paymentColumns = `id, booking_id, user_id, amount, method, status, transaction_id, created_at`

// Create inserts a payment and populates its ID.  A second successful
// payment for the same booking is rejected with ErrPaymentAlreadySettled.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, user_id, amount, method, status, transaction_id)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(ctx, q,
		p.BookingID, p.UserID, p.Amount, p.Method, p.Status, p.TransactionID)
	if err != nil {
		if duplicateKey(err, keyPaymentsSingleSuccess) {
			return ErrPaymentAlreadySettled
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payment last insert id: %w", err)
	}
	p.ID = uint64(id)
	return nil
}

// GetByID returns a payment or ErrPaymentNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	var p model.Payment
	if err := sqlx.GetContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("select payment %d: %w", id, err)
	}
	return &p, nil
}

// ListByBooking returns the payments of a booking, oldest first.
func (r *PaymentRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = ? ORDER BY id`
	payments := []model.Payment{}
	if err := sqlx.SelectContext(ctx, r.getter.DefaultTrOrDB(ctx, r.db), &payments, q, bookingID); err != nil {
		return nil, fmt.Errorf("select payments of booking %d: %w", bookingID, err)
	}
	return payments, nil
}

// Settle moves a pending payment to status.  Payments that are not
// pending, or a success that would be the booking's second, yield
// ErrPaymentAlreadySettled.
func (r *PaymentRepo) Settle(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE payments SET status = ? WHERE id = ? AND status = 'pending'`
	tr := r.getter.DefaultTrOrDB(ctx, r.db)
	res, err := tr.ExecContext(ctx, q, status, id)
	if err != nil {
		if duplicateKey(err, keyPaymentsSingleSuccess) {
			return ErrPaymentAlreadySettled
		}
		return fmt.Errorf("settle payment %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle payment %d rows affected: %w", id, err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrPaymentAlreadySettled
	}
	return nil
}
