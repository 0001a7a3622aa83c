package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/middleware"
)

// RegisterCustomer registers booking endpoints.  Guests may book; a
// bearer token, when sent, must be valid and names the payer.
func RegisterCustomer(e *echo.Echo, h Handlers, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.OptionalJWT(jwtSecret))
	g.POST("/bookings", h.Bookings.Submit, rateLimit)
	g.GET("/bookings/:id/payments", h.Payments.ListByBooking)
}
