package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/repository"
)

// PaymentService records payment attempts.  Record joins whatever
// transaction the context carries, which is how the booking coordinator
// makes the payment part of the booking.
type PaymentService struct {
	store    PaymentStore
	bookings BookingFinder
	log      logrus.FieldLogger
}

func NewPaymentService(store PaymentStore, bookings BookingFinder, log logrus.FieldLogger) *PaymentService {
	return &PaymentService{store: store, bookings: bookings, log: log}
}

// Record stores p and populates its ID.  An empty method defaults to
// card, an empty status to pending and a missing transaction id to a
// fresh UUID.
func (s *PaymentService) Record(ctx context.Context, p *model.Payment) error {
	if p.BookingID == 0 {
		return invalidf("booking id is required")
	}
	if p.Amount < 0 {
		return invalidf("amount must not be negative")
	}
	if p.Method == "" {
		p.Method = model.PaymentMethodDefault
	}
	switch p.Status {
	case "":
		p.Status = model.PaymentStatusPending
	case model.PaymentStatusPending, model.PaymentStatusSuccess, model.PaymentStatusFailed:
	default:
		return invalidf("unknown payment status %q", p.Status)
	}
	if p.TransactionID == nil {
		txID := uuid.NewString()
		p.TransactionID = &txID
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadySettled) {
			return fmt.Errorf("booking %d: %w", p.BookingID, ErrPaymentSettled)
		}
		return storageErr("record payment", err)
	}
	return nil
}

// Get returns a payment by id.
func (s *PaymentService) Get(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, fmt.Errorf("payment %d: %w", id, ErrNotFound)
		}
		return nil, storageErr("get payment", err)
	}
	return p, nil
}

// ListByBooking returns the payment attempts of a booking, oldest first.
func (s *PaymentService) ListByBooking(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	if _, err := s.bookings.GetByID(ctx, bookingID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
		}
		return nil, storageErr("get booking", err)
	}
	payments, err := s.store.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, storageErr("list payments", err)
	}
	return payments, nil
}

// Settle moves a pending payment to success or failed.
func (s *PaymentService) Settle(ctx context.Context, id uint64, status string) (*model.Payment, error) {
	if status != model.PaymentStatusSuccess && status != model.PaymentStatusFailed {
		return nil, invalidf("payment can only be settled as %s or %s", model.PaymentStatusSuccess, model.PaymentStatusFailed)
	}
	if err := s.store.Settle(ctx, id, status); err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			return nil, fmt.Errorf("payment %d: %w", id, ErrNotFound)
		case errors.Is(err, repository.ErrPaymentAlreadySettled):
			return nil, fmt.Errorf("payment %d: %w", id, ErrPaymentSettled)
		}
		return nil, storageErr("settle payment", err)
	}
	s.log.WithFields(logrus.Fields{"payment_id": id, "status": status}).Info("payment settled")
	return s.Get(ctx, id)
}
