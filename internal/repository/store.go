package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// BookingTx is the set of reads and writes the booking lifecycle runs
// inside one transaction.  Either every write made through it commits or
// none does.
type BookingTx interface {
	GetRoom(ctx context.Context, roomID uint64) (*model.Room, error)
	// AdjustRoomAvailability applies delta to available_rooms, failing with
	// ErrNoAvailability or ErrRoomFull instead of leaving [0, total].
	AdjustRoomAvailability(ctx context.Context, roomID uint64, delta int) (*model.Room, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	// GetBookingForUpdate locks the booking row until the transaction ends.
	GetBookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) error
	CountHistory(ctx context.Context, userID string) (int, error)
	InsertHistory(ctx context.Context, h *model.History) error
	SetPrediction(ctx context.Context, bookingID uint64, p float64) error
}

// Store bundles the booking-related repositories behind one transaction
// runner.  It is the MySQL implementation used by the service layer.
type Store struct {
	db       *sql.DB
	Rooms    *RoomRepo
	Bookings *BookingRepo
	History  *HistoryRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		Rooms:    NewRoomRepo(db),
		Bookings: NewBookingRepo(db),
		History:  NewHistoryRepo(db),
	}
}

// InTx runs fn inside a database transaction.  The transaction commits
// when fn returns nil and rolls back otherwise (including on panic).
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx BookingTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &sqlBookingTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

func (s *Store) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	return s.Bookings.List(ctx, f)
}

func (s *Store) SetPrediction(ctx context.Context, id uint64, p float64) error {
	return s.Bookings.SetPrediction(ctx, id, p)
}

func (s *Store) ListHistory(ctx context.Context, f HistoryFilter) ([]model.History, error) {
	return s.History.List(ctx, f)
}

type sqlBookingTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqlBookingTx) GetRoom(ctx context.Context, roomID uint64) (*model.Room, error) {
	return t.s.Rooms.GetByIDTx(ctx, t.tx, roomID)
}

func (t *sqlBookingTx) AdjustRoomAvailability(ctx context.Context, roomID uint64, delta int) (*model.Room, error) {
	return t.s.Rooms.AdjustAvailabilityTx(ctx, t.tx, roomID, delta)
}

func (t *sqlBookingTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.Bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlBookingTx) GetBookingForUpdate(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	return t.s.Bookings.GetForUpdateTx(ctx, t.tx, bookingID)
}

func (t *sqlBookingTx) UpdateBookingStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) error {
	return t.s.Bookings.UpdateStatusTx(ctx, t.tx, bookingID, from, to)
}

func (t *sqlBookingTx) CountHistory(ctx context.Context, userID string) (int, error) {
	return t.s.History.CountByUserTx(ctx, t.tx, userID)
}

func (t *sqlBookingTx) InsertHistory(ctx context.Context, h *model.History) error {
	return t.s.History.CreateTx(ctx, t.tx, h)
}

func (t *sqlBookingTx) SetPrediction(ctx context.Context, bookingID uint64, p float64) error {
	return t.s.Bookings.SetPredictionTx(ctx, t.tx, bookingID, p)
}
