package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/middleware"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// HeaderIdempotencyKey carries the client's checkout attempt token.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// BookingSubmitter is implemented by service.BookingService.
type BookingSubmitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*service.BookingResult, error)
}

// BookingHandler accepts seat selections from customers and guests.
type BookingHandler struct {
	bookings BookingSubmitter
	log      logrus.FieldLogger
}

func NewBookingHandler(bookings BookingSubmitter, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{bookings: bookings, log: log}
}

type submitBookingRequest struct {
	ShowtimeID    uint64   `json:"showtime_id" validate:"required"`
	SeatIDs       []uint64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
	TotalPrice    int64    `json:"total_price" validate:"gte=0"`
	PaymentMethod string   `json:"payment_method" validate:"omitempty,max=32"`
}

// Submit handles POST /v1/bookings.  The payer is taken from the bearer
// token when present; guests book anonymously.  A repeated request with
// the same Idempotency-Key returns the original booking with 200.
func (h *BookingHandler) Submit(c echo.Context) error {
	var body submitBookingRequest
	if err := bindValid(c, &body); err != nil {
		return badRequest(c, err.Error())
	}
	key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLen {
		return badRequest(c, "Idempotency-Key is too long")
	}

	req := service.SubmitRequest{
		ShowtimeID:     body.ShowtimeID,
		SeatIDs:        body.SeatIDs,
		TotalPrice:     body.TotalPrice,
		PaymentMethod:  strings.ToLower(strings.TrimSpace(body.PaymentMethod)),
		IdempotencyKey: key,
	}
	if uid, ok := middleware.UserID(c); ok {
		req.PayerID = &uid
	}

	res, err := h.bookings.Submit(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}
