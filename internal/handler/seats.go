package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/service"
)

// SeatAvailability is implemented by service.AvailabilityService.
type SeatAvailability interface {
	Status(ctx context.Context, showtimeID uint64) (*service.SeatStatus, error)
	Available(ctx context.Context, showtimeID uint64) ([]model.Seat, error)
	HeldIDs(ctx context.Context, showtimeID uint64) ([]uint64, error)
}

// SeatHandler serves the seat map of a showtime.  Responses are never
// cached: every request reads the ledger.
type SeatHandler struct {
	availability SeatAvailability
	log          logrus.FieldLogger
}

func NewSeatHandler(availability SeatAvailability, log logrus.FieldLogger) *SeatHandler {
	return &SeatHandler{availability: availability, log: log}
}

// Status handles GET /v1/showtimes/:id/seats.
func (h *SeatHandler) Status(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	status, err := h.availability.Status(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, status)
}

// Available handles GET /v1/showtimes/:id/seats/available.
func (h *SeatHandler) Available(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	seats, err := h.availability.Available(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}

// Booked handles GET /v1/showtimes/:id/seats/booked.
func (h *SeatHandler) Booked(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ids, err := h.availability.HeldIDs(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seat_ids": ids})
}
