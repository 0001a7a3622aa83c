package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/service"
)

// LayoutEditor is implemented by service.LayoutService.
type LayoutEditor interface {
	GenerateGrid(ctx context.Context, roomID uint64, rows, cols uint32, seatType string) (*service.RoomLayout, error)
	AppendRow(ctx context.Context, roomID uint64, seatType string) (*service.RoomLayout, error)
	AppendColumn(ctx context.Context, roomID uint64, seatType string) (*service.RoomLayout, error)
	Layout(ctx context.Context, roomID uint64) (*service.RoomLayout, error)
}

// LayoutHandler exposes seat layout editing to room owners and the
// read-only layout to everyone.
type LayoutHandler struct {
	layouts LayoutEditor
	log     logrus.FieldLogger
}

func NewLayoutHandler(layouts LayoutEditor, log logrus.FieldLogger) *LayoutHandler {
	return &LayoutHandler{layouts: layouts, log: log}
}

type gridRequest struct {
	Rows     uint32 `json:"rows" validate:"required,min=1,max=702"`
	Cols     uint32 `json:"cols" validate:"required,min=1,max=100"`
	SeatType string `json:"seat_type" validate:"omitempty,max=16"`
}

type appendRequest struct {
	SeatType string `json:"seat_type" validate:"omitempty,max=16"`
}

// GenerateGrid handles POST /v1/admin/rooms/:id/seats/grid.
func (h *LayoutHandler) GenerateGrid(c echo.Context) error {
	roomID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var body gridRequest
	if err := bindValid(c, &body); err != nil {
		return badRequest(c, err.Error())
	}
	layout, err := h.layouts.GenerateGrid(c.Request().Context(), roomID, body.Rows, body.Cols, seatType(body.SeatType))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, layout)
}

// AppendRow handles POST /v1/admin/rooms/:id/seats/rows.
func (h *LayoutHandler) AppendRow(c echo.Context) error {
	return h.appendSeats(c, h.layouts.AppendRow)
}

// AppendColumn handles POST /v1/admin/rooms/:id/seats/columns.
func (h *LayoutHandler) AppendColumn(c echo.Context) error {
	return h.appendSeats(c, h.layouts.AppendColumn)
}

func (h *LayoutHandler) appendSeats(c echo.Context, fn func(context.Context, uint64, string) (*service.RoomLayout, error)) error {
	roomID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var body appendRequest
	if c.Request().ContentLength != 0 {
		if err := bindValid(c, &body); err != nil {
			return badRequest(c, err.Error())
		}
	}
	layout, err := fn(c.Request().Context(), roomID, seatType(body.SeatType))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, layout)
}

// Layout handles GET /v1/rooms/:id/seats/layout.
func (h *LayoutHandler) Layout(c echo.Context) error {
	roomID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	layout, err := h.layouts.Layout(c.Request().Context(), roomID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, layout)
}

func seatType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
