package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/repository"
)

// Grid limits: rows A..ZZ and up to 100 seats per row.
const (
	MaxGridRows = 26 * 27
	MaxGridCols = 100
)

// SeatRow is one row of a room layout.
type SeatRow struct {
	Label string       `json:"label"`
	Seats []model.Seat `json:"seats"`
}

// RoomLayout is the seat map of a room grouped by row.
type RoomLayout struct {
	RoomID   uint64    `json:"room_id"`
	SeatRows uint32    `json:"seat_rows"`
	SeatCols uint32    `json:"seat_cols"`
	Rows     []SeatRow `json:"rows"`
}

// LayoutService edits the seat grid of a room.  Regenerating the grid
// is refused once any showtime in the room has seat assignments;
// appending rows or columns never changes existing seat ids and is
// always allowed.
type LayoutService struct {
	tx          TxRunner
	rooms       RoomStore
	seats       SeatStore
	assignments AssignmentChecker
	log         logrus.FieldLogger
}

func NewLayoutService(tx TxRunner, rooms RoomStore, seats SeatStore, assignments AssignmentChecker, log logrus.FieldLogger) *LayoutService {
	return &LayoutService{tx: tx, rooms: rooms, seats: seats, assignments: assignments, log: log}
}

// GenerateGrid replaces the seats of a room with a rows x cols grid of
// seatType seats.
func (s *LayoutService) GenerateGrid(ctx context.Context, roomID uint64, rows, cols uint32, seatType string) (*RoomLayout, error) {
	if rows == 0 || rows > MaxGridRows {
		return nil, invalidf("rows must be between 1 and %d", MaxGridRows)
	}
	if cols == 0 || cols > MaxGridCols {
		return nil, invalidf("cols must be between 1 and %d", MaxGridCols)
	}
	seatType, err := normalizeSeatType(seatType)
	if err != nil {
		return nil, err
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if _, err := s.lockRoom(ctx, roomID); err != nil {
			return err
		}
		used, err := s.assignments.HasAssignmentsInRoom(ctx, roomID)
		if err != nil {
			return storageErr("check room assignments", err)
		}
		if used {
			return fmt.Errorf("room %d: %w", roomID, ErrLayoutLocked)
		}
		if err := s.seats.DeleteByRoom(ctx, roomID); err != nil {
			if errors.Is(err, repository.ErrSeatInUse) {
				return fmt.Errorf("room %d: %w", roomID, ErrLayoutLocked)
			}
			return storageErr("delete seats", err)
		}
		grid := make([]model.Seat, 0, int(rows)*int(cols))
		for r := 0; r < int(rows); r++ {
			grid = append(grid, rowSeats(roomID, indexToRowLabel(r), 1, cols, seatType)...)
		}
		if err := s.createSeats(ctx, grid); err != nil {
			return err
		}
		if err := s.rooms.UpdateDimensions(ctx, roomID, rows, cols); err != nil {
			return storageErr("update room", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"room_id": roomID, "rows": rows, "cols": cols}).Info("seat grid generated")
	return s.Layout(ctx, roomID)
}

// AppendRow adds a row after the last one, as wide as the room.
func (s *LayoutService) AppendRow(ctx context.Context, roomID uint64, seatType string) (*RoomLayout, error) {
	seatType, err := normalizeSeatType(seatType)
	if err != nil {
		return nil, err
	}
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		room, err := s.lockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		existing, err := s.seats.ListByRoom(ctx, roomID)
		if err != nil {
			return storageErr("list seats", err)
		}
		rows, cols := dimensions(room, existing)
		if cols == 0 {
			return invalidf("room %d has no seat layout; generate a grid first", roomID)
		}
		if rows >= MaxGridRows {
			return invalidf("room %d already has %d rows", roomID, MaxGridRows)
		}
		if err := s.createSeats(ctx, rowSeats(roomID, indexToRowLabel(int(rows)), 1, cols, seatType)); err != nil {
			return err
		}
		if err := s.rooms.UpdateDimensions(ctx, roomID, rows+1, cols); err != nil {
			return storageErr("update room", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("room_id", roomID).Info("seat row appended")
	return s.Layout(ctx, roomID)
}

// AppendColumn adds one seat at the end of every row.
func (s *LayoutService) AppendColumn(ctx context.Context, roomID uint64, seatType string) (*RoomLayout, error) {
	seatType, err := normalizeSeatType(seatType)
	if err != nil {
		return nil, err
	}
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		room, err := s.lockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		existing, err := s.seats.ListByRoom(ctx, roomID)
		if err != nil {
			return storageErr("list seats", err)
		}
		if len(existing) == 0 {
			return invalidf("room %d has no seat layout; generate a grid first", roomID)
		}
		rows, cols := dimensions(room, existing)
		if cols >= MaxGridCols {
			return invalidf("room %d already has %d seats per row", roomID, MaxGridCols)
		}
		last := make(map[string]uint32)
		var order []string
		for _, seat := range existing {
			if _, ok := last[seat.RowLabel]; !ok {
				order = append(order, seat.RowLabel)
			}
			if seat.SeatNumber > last[seat.RowLabel] {
				last[seat.RowLabel] = seat.SeatNumber
			}
		}
		added := make([]model.Seat, 0, len(order))
		for _, label := range order {
			added = append(added, rowSeats(roomID, label, last[label]+1, 1, seatType)...)
		}
		if err := s.createSeats(ctx, added); err != nil {
			return err
		}
		if err := s.rooms.UpdateDimensions(ctx, roomID, rows, cols+1); err != nil {
			return storageErr("update room", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithField("room_id", roomID).Info("seat column appended")
	return s.Layout(ctx, roomID)
}

// Layout returns the seats of a room grouped by row, rows in order.
func (s *LayoutService) Layout(ctx context.Context, roomID uint64) (*RoomLayout, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, roomErr(roomID, err)
	}
	seats, err := s.seats.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, storageErr("list seats", err)
	}
	sortSeats(seats)
	layout := &RoomLayout{RoomID: room.ID, SeatRows: room.SeatRows, SeatCols: room.SeatCols, Rows: []SeatRow{}}
	for _, seat := range seats {
		n := len(layout.Rows)
		if n == 0 || layout.Rows[n-1].Label != seat.RowLabel {
			layout.Rows = append(layout.Rows, SeatRow{Label: seat.RowLabel})
			n++
		}
		layout.Rows[n-1].Seats = append(layout.Rows[n-1].Seats, seat)
	}
	return layout, nil
}

func (s *LayoutService) lockRoom(ctx context.Context, roomID uint64) (*model.Room, error) {
	room, err := s.rooms.GetForUpdate(ctx, roomID)
	if err != nil {
		return nil, roomErr(roomID, err)
	}
	return room, nil
}

func (s *LayoutService) createSeats(ctx context.Context, seats []model.Seat) error {
	if err := s.seats.CreateBulk(ctx, seats); err != nil {
		if errors.Is(err, repository.ErrSeatExists) {
			return invalidf("seat position already taken")
		}
		return storageErr("create seats", err)
	}
	return nil
}

func roomErr(roomID uint64, err error) error {
	if errors.Is(err, repository.ErrRoomNotFound) {
		return fmt.Errorf("room %d: %w", roomID, ErrNotFound)
	}
	return storageErr("get room", err)
}

// dimensions returns the grid size of a room, falling back to the seats
// themselves when the stored dimensions lag behind.
func dimensions(room *model.Room, seats []model.Seat) (rows, cols uint32) {
	rows, cols = room.SeatRows, room.SeatCols
	for _, seat := range seats {
		if idx, ok := rowLabelToIndex(seat.RowLabel); ok && uint32(idx)+1 > rows {
			rows = uint32(idx) + 1
		}
		if seat.SeatNumber > cols {
			cols = seat.SeatNumber
		}
	}
	return rows, cols
}

func rowSeats(roomID uint64, label string, from, count uint32, seatType string) []model.Seat {
	seats := make([]model.Seat, 0, count)
	for n := from; n < from+count; n++ {
		seats = append(seats, model.Seat{RoomID: roomID, RowLabel: label, SeatNumber: n, SeatType: seatType})
	}
	return seats
}

func normalizeSeatType(t string) (string, error) {
	switch t {
	case "":
		return model.SeatTypeStandard, nil
	case model.SeatTypeStandard, model.SeatTypeVIP, model.SeatTypeAccessible:
		return t, nil
	}
	return "", invalidf("unknown seat type %q", t)
}
