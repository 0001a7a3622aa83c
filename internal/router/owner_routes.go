package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/showtime-booking/internal/middleware"
)

// RegisterOwner registers admin endpoints under /v1/admin.  They require
// a valid JWT with the OWNER role.
func RegisterOwner(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOwner),
	)
	g.POST("/rooms/:id/seats/grid", h.Layouts.GenerateGrid)
	g.POST("/rooms/:id/seats/rows", h.Layouts.AppendRow)
	g.POST("/rooms/:id/seats/columns", h.Layouts.AppendColumn)
	g.POST("/payments/:id/settle", h.Payments.Settle)
}
