package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/model"
	"github.com/iliyamo/showtime-booking/internal/queue"
	"github.com/iliyamo/showtime-booking/internal/repository"
)

// state is the in-memory equivalent of the database tables.
type state struct {
	nextID      uint64
	rooms       map[uint64]model.Room
	seats       map[uint64]model.Seat
	showtimes   map[uint64]model.Showtime
	bookings    map[uint64]model.Booking
	assignments []assignment
	payments    map[uint64]model.Payment
}

type assignment struct {
	model.SeatAssignment
	active bool
}

func (s *state) clone() *state {
	c := &state{
		nextID:      s.nextID,
		rooms:       make(map[uint64]model.Room, len(s.rooms)),
		seats:       make(map[uint64]model.Seat, len(s.seats)),
		showtimes:   make(map[uint64]model.Showtime, len(s.showtimes)),
		bookings:    make(map[uint64]model.Booking, len(s.bookings)),
		assignments: append([]assignment(nil), s.assignments...),
		payments:    make(map[uint64]model.Payment, len(s.payments)),
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.seats {
		c.seats[k] = v
	}
	for k, v := range s.showtimes {
		c.showtimes[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

// fakeStore backs every fake repository.  Transactions are serialised
// and rolled back by restoring a snapshot, which gives the atomicity of
// the real store without its concurrency.
type fakeStore struct {
	txMu sync.Mutex

	mu   sync.Mutex
	st   *state
	snap *state // snapshot of the running transaction, nil outside one

	// beforeAssign runs inside CreateAssignments before the uniqueness
	// check, standing in for a competing booking committing first.
	beforeAssign func()
	// assignErrs are returned, in order, by CreateAssignments calls.
	assignErrs []error
	// heldErr is returned by ActiveSeatIDs when set.
	heldErr error
	// beforeTx runs once at the start of the next transaction.
	beforeTx func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{st: &state{
		rooms:     map[uint64]model.Room{},
		seats:     map[uint64]model.Seat{},
		showtimes: map[uint64]model.Showtime{},
		bookings:  map[uint64]model.Booking{},
		payments:  map[uint64]model.Payment{},
	}}
}

func (f *fakeStore) id() uint64 {
	f.st.nextID++
	return f.st.nextID
}

// addRoom creates a room with a rows x cols grid and returns the seat
// ids row by row.
func (f *fakeStore) addRoom(rows, cols int) (uint64, []uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roomID := f.id()
	f.st.rooms[roomID] = model.Room{ID: roomID, Name: "Room", SeatRows: uint32(rows), SeatCols: uint32(cols)}
	var ids []uint64
	for r := 0; r < rows; r++ {
		for c := 1; c <= cols; c++ {
			id := f.id()
			f.st.seats[id] = model.Seat{ID: id, RoomID: roomID, RowLabel: indexToRowLabel(r), SeatNumber: uint32(c), SeatType: model.SeatTypeStandard}
			ids = append(ids, id)
		}
	}
	return roomID, ids
}

func (f *fakeStore) addShowtime(roomID uint64, price int64) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.st.showtimes[id] = model.Showtime{ID: id, RoomID: roomID, MovieID: 1, TimeSlotID: id, TicketPrice: price}
	return id
}

// commitAssignment inserts an active assignment as if another booking
// had committed it.  It survives a rollback of the running transaction.
func (f *fakeStore) commitAssignment(showtimeID, seatID uint64) {
	for _, st := range []*state{f.st, f.snap} {
		if st == nil {
			continue
		}
		st.nextID++
		bookingID := st.nextID
		st.bookings[bookingID] = model.Booking{ID: bookingID, ShowtimeID: showtimeID, Status: model.BookingStatusBooked}
		st.assignments = append(st.assignments, assignment{
			SeatAssignment: model.SeatAssignment{ID: bookingID, BookingID: bookingID, ShowtimeID: showtimeID, SeatID: seatID},
			active:         true,
		})
	}
}

// cancelBooking cancels a booking and releases its assignments the way
// trg_bookings_release_seats does.
func (f *fakeStore) cancelBooking(bookingID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.st.bookings[bookingID]
	b.Status = model.BookingStatusCancelled
	f.st.bookings[bookingID] = b
	for i := range f.st.assignments {
		if f.st.assignments[i].BookingID == bookingID {
			f.st.assignments[i].active = false
		}
	}
}

// activeSeats mirrors uq_seat_assignments_active: only the active flag
// counts, never the booking row.
func (f *fakeStore) activeSeats(showtimeID uint64) []uint64 {
	var ids []uint64
	for _, a := range f.st.assignments {
		if a.ShowtimeID == showtimeID && a.active {
			ids = append(ids, a.SeatID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeStore) counts() (bookings, assignments, payments int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.st.bookings), len(f.st.assignments), len(f.st.payments)
}

// fakeTx implements TxRunner over a fakeStore.
type fakeTx struct {
	store *fakeStore
	calls int
}

func (t *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	if hook := t.store.beforeTx; hook != nil {
		t.store.beforeTx = nil
		hook()
	}

	t.store.mu.Lock()
	t.calls++
	t.store.snap = t.store.st.clone()
	t.store.mu.Unlock()

	err := fn(ctx)

	t.store.mu.Lock()
	if err != nil {
		t.store.st = t.store.snap
	}
	t.store.snap = nil
	t.store.mu.Unlock()
	return err
}

type fakeShowtimes struct{ *fakeStore }

func (f fakeShowtimes) GetByID(_ context.Context, id uint64) (*model.Showtime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.st.showtimes[id]
	if !ok || st.DeletedAt != nil {
		return nil, repository.ErrShowtimeNotFound
	}
	return &st, nil
}

func (f fakeShowtimes) GetForShare(ctx context.Context, id uint64) (*model.Showtime, error) {
	return f.GetByID(ctx, id)
}

// deleteShowtime soft-deletes a showtime.
func (f *fakeStore) deleteShowtime(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.st.showtimes[id]
	now := time.Now()
	st.DeletedAt = &now
	f.st.showtimes[id] = st
}

type fakeSeats struct{ *fakeStore }

func (f fakeSeats) ListByRoom(_ context.Context, roomID uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var seats []model.Seat
	for _, s := range f.st.seats {
		if s.RoomID == roomID {
			seats = append(seats, s)
		}
	}
	// map order is random; callers must not rely on storage order
	return seats, nil
}

func (f fakeSeats) CreateBulk(_ context.Context, seats []model.Seat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range seats {
		for _, s := range f.st.seats {
			if s.RoomID == n.RoomID && s.RowLabel == n.RowLabel && s.SeatNumber == n.SeatNumber {
				return repository.ErrSeatExists
			}
		}
	}
	for _, n := range seats {
		n.ID = f.id()
		f.st.seats[n.ID] = n
	}
	return nil
}

func (f fakeSeats) DeleteByRoom(_ context.Context, roomID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.st.seats {
		if s.RoomID != roomID {
			continue
		}
		for _, a := range f.st.assignments {
			if a.SeatID == id {
				return repository.ErrSeatInUse
			}
		}
	}
	for id, s := range f.st.seats {
		if s.RoomID == roomID {
			delete(f.st.seats, id)
		}
	}
	return nil
}

type fakeRooms struct{ *fakeStore }

func (f fakeRooms) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.st.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &r, nil
}

func (f fakeRooms) GetForUpdate(ctx context.Context, id uint64) (*model.Room, error) {
	return f.GetByID(ctx, id)
}

func (f fakeRooms) UpdateDimensions(_ context.Context, id uint64, rows, cols uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.st.rooms[id]
	r.SeatRows, r.SeatCols = rows, cols
	f.st.rooms[id] = r
	return nil
}

type fakeLedger struct{ *fakeStore }

func (f fakeLedger) ActiveSeatIDs(_ context.Context, showtimeID uint64, among []uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heldErr != nil {
		return nil, f.heldErr
	}
	want := make(map[uint64]bool, len(among))
	for _, id := range among {
		want[id] = true
	}
	ids := []uint64{}
	for _, id := range f.activeSeats(showtimeID) {
		if len(among) == 0 || want[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f fakeLedger) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.IdempotencyKey != nil {
		for _, other := range f.st.bookings {
			if other.IdempotencyKey != nil && *other.IdempotencyKey == *b.IdempotencyKey {
				return repository.ErrDuplicateIdempotencyKey
			}
		}
	}
	b.ID = f.id()
	f.st.bookings[b.ID] = *b
	return nil
}

func (f fakeLedger) CreateAssignments(_ context.Context, bookingID, showtimeID uint64, seatIDs []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.assignErrs) > 0 {
		err := f.assignErrs[0]
		f.assignErrs = f.assignErrs[1:]
		if err != nil {
			return err
		}
	}
	if f.beforeAssign != nil {
		hook := f.beforeAssign
		f.beforeAssign = nil
		hook()
	}
	held := make(map[uint64]bool)
	for _, id := range f.activeSeats(showtimeID) {
		held[id] = true
	}
	for _, id := range seatIDs {
		if held[id] {
			return repository.ErrSeatTaken
		}
	}
	for _, id := range seatIDs {
		f.st.assignments = append(f.st.assignments, assignment{
			SeatAssignment: model.SeatAssignment{ID: f.id(), BookingID: bookingID, ShowtimeID: showtimeID, SeatID: id},
			active:         true,
		})
	}
	return nil
}

func (f fakeLedger) FindByIdempotencyKey(_ context.Context, key string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.st.bookings {
		if b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			return &b, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (f fakeLedger) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.st.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (f fakeLedger) SeatIDs(_ context.Context, bookingID uint64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []uint64{}
	for _, a := range f.st.assignments {
		if a.BookingID == bookingID {
			ids = append(ids, a.SeatID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f fakeLedger) HasAssignmentsInRoom(_ context.Context, roomID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.st.assignments {
		if f.st.showtimes[a.ShowtimeID].RoomID == roomID {
			return true, nil
		}
	}
	return false, nil
}

type fakePayments struct{ *fakeStore }

func (f fakePayments) Create(_ context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.Status == model.PaymentStatusSuccess {
		for _, other := range f.st.payments {
			if other.BookingID == p.BookingID && other.Status == model.PaymentStatusSuccess {
				return repository.ErrPaymentAlreadySettled
			}
		}
	}
	p.ID = f.id()
	f.st.payments[p.ID] = *p
	return nil
}

func (f fakePayments) GetByID(_ context.Context, id uint64) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.st.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return &p, nil
}

func (f fakePayments) ListByBooking(_ context.Context, bookingID uint64) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Payment{}
	for _, p := range f.st.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakePayments) Settle(_ context.Context, id uint64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.st.payments[id]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return repository.ErrPaymentAlreadySettled
	}
	if status == model.PaymentStatusSuccess {
		for _, other := range f.st.payments {
			if other.BookingID == p.BookingID && other.Status == model.PaymentStatusSuccess {
				return repository.ErrPaymentAlreadySettled
			}
		}
	}
	p.Status = status
	f.st.payments[id] = p
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (p *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

var errBrokerDown = errors.New("broker down")

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fixture wires every service over one fakeStore.
type fixture struct {
	store        *fakeStore
	tx           *fakeTx
	publisher    *fakePublisher
	availability *AvailabilityService
	payments     *PaymentService
	bookings     *BookingService
	layouts      *LayoutService
}

func newFixture(opts BookingOptions) *fixture {
	store := newFakeStore()
	tx := &fakeTx{store: store}
	pub := &fakePublisher{}
	log := testLogger()
	payments := NewPaymentService(fakePayments{store}, fakeLedger{store}, log)
	bookings := NewBookingService(tx, fakeShowtimes{store}, fakeSeats{store}, fakeLedger{store}, payments, pub, opts, log)
	bookings.sleep = func(time.Duration) {}
	return &fixture{
		store:        store,
		tx:           tx,
		publisher:    pub,
		availability: NewAvailabilityService(fakeShowtimes{store}, fakeSeats{store}, fakeLedger{store}, log),
		payments:     payments,
		bookings:     bookings,
		layouts:      NewLayoutService(tx, fakeRooms{store}, fakeSeats{store}, fakeLedger{store}, log),
	}
}
