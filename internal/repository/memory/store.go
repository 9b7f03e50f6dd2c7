// Package memory is an in-process implementation of the booking and room
// stores.  Transactions are serialised by one mutex and applied to a copy
// of the state, so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

type state struct {
	rooms       map[uint64]model.Room
	bookings    map[uint64]model.Booking
	history     []model.History
	nextRoom    uint64
	nextBooking uint64
	nextHistory uint64
}

func (s *state) clone() *state {
	c := *s
	c.rooms = make(map[uint64]model.Room, len(s.rooms))
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	c.bookings = make(map[uint64]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	c.history = append([]model.History(nil), s.history...)
	return &c
}

// Store keeps rooms, bookings and history in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: &state{
		rooms:    map[uint64]model.Room{},
		bookings: map[uint64]model.Booking{},
	}}
}

// InTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (s *Store) ListBookings(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.st.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingTime.Equal(out[j].BookingTime) {
			return out[i].BookingTime.After(out[j].BookingTime)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, f.Skip, f.Limit), nil
}

func (s *Store) SetPrediction(_ context.Context, id uint64, p float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.CancellationPrediction = &p
	s.st.bookings[id] = b
	return nil
}

func (s *Store) ListHistory(_ context.Context, f repository.HistoryFilter) ([]model.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.History{}
	for i := len(s.st.history) - 1; i >= 0; i-- {
		if f.UserID == "" || s.st.history[i].UserID == f.UserID {
			out = append(out, s.st.history[i])
		}
	}
	return page(out, f.Skip, f.Limit), nil
}

// Rooms

func (s *Store) List(_ context.Context, f repository.RoomFilter) ([]model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Room{}
	for _, rm := range s.st.rooms {
		if f.RoomType != "" && rm.RoomType != f.RoomType {
			continue
		}
		if f.AvailableOnly && rm.AvailableRooms <= 0 {
			continue
		}
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, f.Skip, f.Limit), nil
}

func (s *Store) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rm, ok := s.st.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &rm, nil
}

func (s *Store) Create(_ context.Context, rm *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codeTaken(rm.RoomCode, 0) {
		return repository.ErrRoomCodeExists
	}
	s.st.nextRoom++
	rm.ID = s.st.nextRoom
	s.st.rooms[rm.ID] = *rm
	return nil
}

func (s *Store) Update(_ context.Context, rm *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.rooms[rm.ID]; !ok {
		return repository.ErrRoomNotFound
	}
	if s.codeTaken(rm.RoomCode, rm.ID) {
		return repository.ErrRoomCodeExists
	}
	s.st.rooms[rm.ID] = *rm
	return nil
}

func (s *Store) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.rooms[id]; !ok {
		return repository.ErrRoomNotFound
	}
	for _, b := range s.st.bookings {
		if b.RoomID == id && b.Status == model.BookingConfirmed {
			return repository.ErrConflict
		}
	}
	for bid, b := range s.st.bookings {
		if b.RoomID == id {
			b.RoomID = 0
			s.st.bookings[bid] = b
		}
	}
	delete(s.st.rooms, id)
	return nil
}

func (s *Store) codeTaken(code string, except uint64) bool {
	for id, rm := range s.st.rooms {
		if id != except && rm.RoomCode == code {
			return true
		}
	}
	return false
}

func page[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit <= 0 {
		limit = 100
	}
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

type memTx struct{ st *state }

func (t *memTx) GetRoom(_ context.Context, roomID uint64) (*model.Room, error) {
	rm, ok := t.st.rooms[roomID]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &rm, nil
}

func (t *memTx) AdjustRoomAvailability(_ context.Context, roomID uint64, delta int) (*model.Room, error) {
	rm, ok := t.st.rooms[roomID]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	next := rm.AvailableRooms + delta
	switch {
	case next < 0:
		return nil, repository.ErrNoAvailability
	case next > rm.TotalRooms:
		return nil, repository.ErrRoomFull
	}
	rm.AvailableRooms = next
	t.st.rooms[roomID] = rm
	return &rm, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.st.nextBooking++
	b.ID = t.st.nextBooking
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *memTx) GetBookingForUpdate(_ context.Context, bookingID uint64) (*model.Booking, error) {
	b, ok := t.st.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (t *memTx) UpdateBookingStatus(_ context.Context, bookingID uint64, from, to model.BookingStatus) error {
	b, ok := t.st.bookings[bookingID]
	if !ok || b.Status != from {
		return repository.ErrConflict
	}
	b.Status = to
	t.st.bookings[bookingID] = b
	return nil
}

func (t *memTx) CountHistory(_ context.Context, userID string) (int, error) {
	n := 0
	for _, h := range t.st.history {
		if h.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertHistory(_ context.Context, h *model.History) error {
	t.st.nextHistory++
	h.ID = t.st.nextHistory
	t.st.history = append(t.st.history, *h)
	return nil
}

func (t *memTx) SetPrediction(_ context.Context, bookingID uint64, p float64) error {
	b, ok := t.st.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.CancellationPrediction = &p
	t.st.bookings[bookingID] = b
	return nil
}
