package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// PaymentLedger is implemented by service.PaymentService.
type PaymentLedger interface {
	ListByBooking(ctx context.Context, bookingID uint64) ([]model.Payment, error)
	Settle(ctx context.Context, id uint64, status string) (*model.Payment, error)
}

type PaymentHandler struct {
	payments PaymentLedger
	log      logrus.FieldLogger
}

func NewPaymentHandler(payments PaymentLedger, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

// ListByBooking handles GET /v1/bookings/:id/payments.
func (h *PaymentHandler) ListByBooking(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	payments, err := h.payments.ListByBooking(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": payments})
}

type settlePaymentRequest struct {
	Status string `json:"status" validate:"required,oneof=success failed"`
}

// Settle handles POST /v1/admin/payments/:id/settle.
func (h *PaymentHandler) Settle(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid payment id")
	}
	var body settlePaymentRequest
	if err := bindValid(c, &body); err != nil {
		return badRequest(c, err.Error())
	}
	p, err := h.payments.Settle(c.Request().Context(), id, body.Status)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}
