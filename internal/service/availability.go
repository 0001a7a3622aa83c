package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/repository"
)

// SeatStatus is the seat map of a showtime: every seat of the room plus
// the ids of those currently held.
type SeatStatus struct {
	Seats       []model.Seat `json:"seats"`
	HeldSeatIDs []uint64     `json:"held_seat_ids"`
}

// AvailabilityService derives free and held seats of a showtime from the
// reservation ledger.  Nothing is cached; every call reads storage.
type AvailabilityService struct {
	showtimes ShowtimeFinder
	seats     SeatCatalog
	holds     HoldReader
	log       logrus.FieldLogger
}

func NewAvailabilityService(showtimes ShowtimeFinder, seats SeatCatalog, holds HoldReader, log logrus.FieldLogger) *AvailabilityService {
	return &AvailabilityService{showtimes: showtimes, seats: seats, holds: holds, log: log}
}

// Status returns all seats of the showtime's room and the held seat ids.
func (s *AvailabilityService) Status(ctx context.Context, showtimeID uint64) (*SeatStatus, error) {
	st, err := s.showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := s.seats.ListByRoom(ctx, st.RoomID)
	if err != nil {
		return nil, storageErr("list seats", err)
	}
	sortSeats(seats)
	held, err := s.held(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return &SeatStatus{Seats: seats, HeldSeatIDs: held}, nil
}

// Available returns the seats of the showtime that are not held.
func (s *AvailabilityService) Available(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
	status, err := s.Status(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	held := make(map[uint64]struct{}, len(status.HeldSeatIDs))
	for _, id := range status.HeldSeatIDs {
		held[id] = struct{}{}
	}
	free := make([]model.Seat, 0, len(status.Seats))
	for _, seat := range status.Seats {
		if _, ok := held[seat.ID]; !ok {
			free = append(free, seat)
		}
	}
	return free, nil
}

// HeldIDs returns the held seat ids of a showtime in ascending order.
func (s *AvailabilityService) HeldIDs(ctx context.Context, showtimeID uint64) ([]uint64, error) {
	if _, err := s.showtime(ctx, showtimeID); err != nil {
		return nil, err
	}
	return s.held(ctx, showtimeID)
}

func (s *AvailabilityService) showtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	if id == 0 {
		return nil, invalidf("showtime id is required")
	}
	st, err := s.showtimes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, fmt.Errorf("showtime %d: %w", id, ErrNotFound)
		}
		return nil, storageErr("get showtime", err)
	}
	return st, nil
}

func (s *AvailabilityService) held(ctx context.Context, showtimeID uint64) ([]uint64, error) {
	held, err := s.holds.ActiveSeatIDs(ctx, showtimeID, nil)
	if err != nil {
		s.log.WithError(err).WithField("showtime_id", showtimeID).Error("read held seats")
		return nil, storageErr("read held seats", err)
	}
	if held == nil {
		held = []uint64{}
	}
	return held, nil
}
