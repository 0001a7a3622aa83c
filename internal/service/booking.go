package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/queue"
	"github.com/iliyamo/showtime-booking/internal/repository"
)

// Price policies for submitted totals.
const (
	// PricePolicyTrust stores the client's total verbatim.
	PricePolicyTrust = "trust"
	// PricePolicyVerify requires total == seats * showtime ticket price.
	PricePolicyVerify = "verify"
)

const confirmationMessage = "Booking confirmed"

// BookingOptions tunes the booking coordinator.
type BookingOptions struct {
	MaxAttempts    int           // attempts per submit on deadlock / lock wait timeout
	RetryBackoff   time.Duration // base pause between attempts, multiplied by the attempt number
	PricePolicy    string        // PricePolicyTrust or PricePolicyVerify
	PublishTimeout time.Duration // upper bound for the post-commit event publish
}

// SubmitRequest is a customer's seat selection for one showtime.
type SubmitRequest struct {
	ShowtimeID     uint64
	PayerID        *uint64
	SeatIDs        []uint64
	TotalPrice     int64
	PaymentMethod  string
	IdempotencyKey string
}

// BookingResult describes a committed booking.  Replayed is set when the
// result belongs to an earlier submit with the same idempotency key.
type BookingResult struct {
	BookingID uint64 `json:"booking_id"`
	PaymentID uint64 `json:"payment_id"`
	Message   string `json:"message"`
	Replayed  bool   `json:"-"`
}

// BookingService converts a seat selection into a booking, its seat
// assignments and a successful payment, all in one transaction.  The
// unique index over active seat assignments decides races: of two
// overlapping submits exactly one commits and the other gets a
// *SeatConflictError.
type BookingService struct {
	tx        TxRunner
	showtimes ShowtimeLocker
	seats     SeatCatalog
	ledger    Ledger
	payments  *PaymentService
	publisher EventPublisher
	opts      BookingOptions
	log       logrus.FieldLogger
	now       func() time.Time
	sleep     func(time.Duration)
}

// NewBookingService wires the coordinator.  publisher may be nil, in
// which case no events are emitted.
func NewBookingService(
	tx TxRunner,
	showtimes ShowtimeLocker,
	seats SeatCatalog,
	ledger Ledger,
	payments *PaymentService,
	publisher EventPublisher,
	opts BookingOptions,
	log logrus.FieldLogger,
) *BookingService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.PricePolicy == "" {
		opts.PricePolicy = PricePolicyTrust
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &BookingService{
		tx:        tx,
		showtimes: showtimes,
		seats:     seats,
		ledger:    ledger,
		payments:  payments,
		publisher: publisher,
		opts:      opts,
		log:       log,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Submit books req.SeatIDs for req.ShowtimeID.
//
// Errors: ErrInvalidRequest for an empty, zero, foreign or mispriced
// selection and for an idempotency key reused with a different
// selection; ErrNotFound for an unknown showtime; *SeatConflictError
// listing the held seats; ErrStorageFailure otherwise.
//
// Cancellation of ctx is ignored once Submit starts so that a caller
// giving up does not abort a commit in flight.
func (s *BookingService) Submit(ctx context.Context, req SubmitRequest) (*BookingResult, error) {
	ctx = context.WithoutCancel(ctx)

	seatIDs, err := normalizeSeatIDs(req.SeatIDs)
	if err != nil {
		return nil, err
	}
	if req.TotalPrice < 0 {
		return nil, invalidf("total price must not be negative")
	}

	st, err := s.showtimes.GetByID(ctx, req.ShowtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, fmt.Errorf("showtime %d: %w", req.ShowtimeID, ErrNotFound)
		}
		return nil, storageErr("get showtime", err)
	}

	labels, err := s.seatLabels(ctx, st.RoomID, seatIDs)
	if err != nil {
		return nil, err
	}

	if s.opts.PricePolicy == PricePolicyVerify {
		if want := int64(len(seatIDs)) * st.TicketPrice; req.TotalPrice != want {
			return nil, invalidf("total price %d does not match %d seats at %d", req.TotalPrice, len(seatIDs), st.TicketPrice)
		}
	}

	logger := s.log.WithFields(logrus.Fields{"showtime_id": st.ID, "seats": len(seatIDs)})

	var res *BookingResult
	for attempt := 1; ; attempt++ {
		res, err = s.attempt(ctx, st, req, seatIDs)
		if err == nil || !repository.IsRetryable(err) || attempt >= s.opts.MaxAttempts {
			break
		}
		logger.WithError(err).WithField("attempt", attempt).Warn("booking transaction aborted by lock conflict, retrying")
		s.sleep(s.opts.RetryBackoff * time.Duration(attempt))
	}
	if err != nil {
		var conflict *SeatConflictError
		switch {
		case errors.As(err, &conflict):
			logger.WithField("unavailable", conflict.SeatIDs).Info("booking rejected, seats unavailable")
		case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrNotFound), errors.Is(err, ErrStorageFailure):
		default:
			err = storageErr("submit booking", err)
		}
		if errors.Is(err, ErrStorageFailure) {
			logger.WithError(err).Error("booking failed")
		}
		return nil, err
	}

	if res.Replayed {
		logger.WithField("booking_id", res.BookingID).Info("booking replayed from idempotency key")
		return res, nil
	}
	logger.WithFields(logrus.Fields{"booking_id": res.BookingID, "payment_id": res.PaymentID}).Info("booking confirmed")
	s.publishConfirmed(ctx, st, req, seatIDs, labels, res)
	return res, nil
}

// attempt runs one booking transaction.
func (s *BookingService) attempt(ctx context.Context, st *model.Showtime, req SubmitRequest, seatIDs []uint64) (*BookingResult, error) {
	var res *BookingResult
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		// The showtime may have been deleted since Submit looked it up.
		if _, err := s.showtimes.GetForShare(ctx, st.ID); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			prior, err := s.replay(ctx, req.IdempotencyKey, st.ID, seatIDs)
			if err != nil {
				return err
			}
			if prior != nil {
				res = prior
				return nil
			}
		}

		held, err := s.ledger.ActiveSeatIDs(ctx, st.ID, seatIDs)
		if err != nil {
			return err
		}
		if len(held) > 0 {
			return &SeatConflictError{SeatIDs: held}
		}

		booking := &model.Booking{
			UserID:     req.PayerID,
			ShowtimeID: st.ID,
			TotalPrice: req.TotalPrice,
			Status:     model.BookingStatusBooked,
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			booking.IdempotencyKey = &key
		}
		if err := s.ledger.Create(ctx, booking); err != nil {
			return err
		}
		if err := s.ledger.CreateAssignments(ctx, booking.ID, st.ID, seatIDs); err != nil {
			return err
		}

		payment := &model.Payment{
			BookingID: booking.ID,
			UserID:    req.PayerID,
			Amount:    req.TotalPrice,
			Method:    req.PaymentMethod,
			Status:    model.PaymentStatusSuccess,
		}
		if err := s.payments.Record(ctx, payment); err != nil {
			return err
		}

		res = &BookingResult{BookingID: booking.ID, PaymentID: payment.ID, Message: confirmationMessage}
		return nil
	})

	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, repository.ErrSeatTaken):
		// The transaction is rolled back; the winners are committed and
		// visible now unless they are still in flight.
		held, rerr := s.ledger.ActiveSeatIDs(ctx, st.ID, seatIDs)
		if rerr != nil {
			s.log.WithError(rerr).WithField("showtime_id", st.ID).Warn("re-read of held seats failed, reporting the whole selection")
		}
		if rerr != nil || len(held) == 0 {
			held = seatIDs
		}
		return nil, &SeatConflictError{SeatIDs: held}
	case errors.Is(err, repository.ErrShowtimeNotFound):
		return nil, fmt.Errorf("showtime %d: %w", st.ID, ErrNotFound)
	case errors.Is(err, repository.ErrDuplicateIdempotencyKey):
		// A concurrent submit with the same key committed first.
		prior, rerr := s.replay(ctx, req.IdempotencyKey, st.ID, seatIDs)
		if rerr != nil {
			return nil, rerr
		}
		if prior == nil {
			return nil, storageErr("replay booking", err)
		}
		return prior, nil
	}
	return nil, err
}

// replay returns the result of the booking created with key, nil when
// there is none, or ErrInvalidRequest when the key was used for a
// different selection.
func (s *BookingService) replay(ctx context.Context, key string, showtimeID uint64, seatIDs []uint64) (*BookingResult, error) {
	prior, err := s.ledger.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, nil
		}
		return nil, err
	}
	priorSeats, err := s.ledger.SeatIDs(ctx, prior.ID)
	if err != nil {
		return nil, err
	}
	if prior.ShowtimeID != showtimeID || !equalIDs(priorSeats, seatIDs) {
		return nil, invalidf("idempotency key %q was used for a different booking", key)
	}
	payments, err := s.payments.store.ListByBooking(ctx, prior.ID)
	if err != nil {
		return nil, err
	}
	res := &BookingResult{BookingID: prior.ID, Message: confirmationMessage, Replayed: true}
	for _, p := range payments {
		if p.Status == model.PaymentStatusSuccess {
			res.PaymentID = p.ID
			break
		}
	}
	return res, nil
}

// seatLabels checks that every id is a seat of the room and returns the
// display labels in the same order.
func (s *BookingService) seatLabels(ctx context.Context, roomID uint64, seatIDs []uint64) ([]string, error) {
	seats, err := s.seats.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, storageErr("list seats", err)
	}
	byID := make(map[uint64]model.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}
	labels := make([]string, 0, len(seatIDs))
	var foreign []uint64
	for _, id := range seatIDs {
		seat, ok := byID[id]
		if !ok {
			foreign = append(foreign, id)
			continue
		}
		labels = append(labels, seat.Label())
	}
	if len(foreign) > 0 {
		return nil, invalidf("seats %v do not belong to the showtime's room", foreign)
	}
	return labels, nil
}

func (s *BookingService) publishConfirmed(ctx context.Context, st *model.Showtime, req SubmitRequest, seatIDs []uint64, labels []string, res *BookingResult) {
	if s.publisher == nil {
		return
	}
	method := req.PaymentMethod
	if method == "" {
		method = model.PaymentMethodDefault
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:     res.BookingID,
		PaymentID:     res.PaymentID,
		UserID:        req.PayerID,
		ShowtimeID:    st.ID,
		RoomID:        st.RoomID,
		SeatIDs:       seatIDs,
		SeatLabels:    labels,
		TotalPrice:    req.TotalPrice,
		PaymentMethod: method,
		ConfirmedAt:   s.now().UTC().Format(time.RFC3339),
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	defer cancel()
	if err := s.publisher.PublishBookingConfirmed(ctx, ev); err != nil {
		s.log.WithError(err).WithField("booking_id", res.BookingID).Warn("publish booking.confirmed failed")
	}
}

// normalizeSeatIDs rejects empty selections and zero ids, collapses
// duplicates and sorts ascending.
func normalizeSeatIDs(ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, invalidf("at least one seat is required")
	}
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, invalidf("seat id must be positive")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// equalIDs compares two ascending id slices.
func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
