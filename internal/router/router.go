// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/handler"
	"github.com/iliyamo/showtime-booking/internal/middleware"
)

// Handlers bundles every HTTP handler the API serves.
type Handlers struct {
	Health   echo.HandlerFunc
	Seats    *handler.SeatHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Layouts  *handler.LayoutHandler
}

// New returns an Echo instance with all routes registered.  rateLimit
// guards booking submission.
func New(h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc, log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	RegisterPublic(e, h)
	RegisterCustomer(e, h, jwtSecret, rateLimit)
	RegisterOwner(e, h, jwtSecret)
	return e
}

// RegisterPublic registers the unauthenticated read endpoints.
func RegisterPublic(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health)

	e.GET("/v1/showtimes/:id/seats", h.Seats.Status)
	e.GET("/v1/showtimes/:id/seats/available", h.Seats.Available)
	e.GET("/v1/showtimes/:id/seats/booked", h.Seats.Booked)

	e.GET("/v1/rooms/:id/seats/layout", h.Layouts.Layout)
}
