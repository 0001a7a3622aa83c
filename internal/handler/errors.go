package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/service"
)

// writeError maps a service error onto its HTTP response.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	var conflict *service.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "one or more seats are no longer available",
			"unavailable": conflict.SeatIDs,
		})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrLayoutLocked), errors.Is(err, service.ErrPaymentSettled):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStorageFailure):
		log.WithError(err).Error("storage failure")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service temporarily unavailable, please retry"})
	}
	log.WithError(err).Error("unexpected error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// bindValid binds the request body into v and runs the validator.
func bindValid(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return errors.New("invalid request body")
	}
	if err := c.Validate(v); err != nil {
		return err
	}
	return nil
}
