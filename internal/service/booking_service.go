// Package service holds the booking lifecycle: creation with derived
// features, cancellation with history bookkeeping, and the availability
// counter that both keep within [0, total_rooms].
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// Store is the persistence the lifecycle manager depends on.  Booking
// writes go through InTx so the room counter, the booking row and the
// history row change together or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx repository.BookingTx) error) error
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListBookings(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
	SetPrediction(ctx context.Context, id uint64, p float64) error
	ListHistory(ctx context.Context, f repository.HistoryFilter) ([]model.History, error)
}

const publishTimeout = 3 * time.Second

// BookingService is the booking lifecycle manager.
type BookingService struct {
	store  Store
	pub    EventPublisher
	log    *zap.Logger
	scorer Scorer
	now    func() time.Time
}

func NewBookingService(store Store, pub EventPublisher, log *zap.Logger) *BookingService {
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{store: store, pub: pub, log: log, scorer: DefaultScorer(), now: time.Now}
}

// WithClock replaces the time source used for lead time and timestamps.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// CreateBookingInput is what a client supplies; every other booking
// field is derived.
type CreateBookingInput struct {
	RoomID              uint64
	ArrivalDate         model.Date
	NoOfAdults          int
	NoOfChildren        int
	NoOfWeekNights      int
	NoOfWeekendNights   int
	TypeOfMealPlan      int
	NoOfSpecialRequests int
}

func (in CreateBookingInput) validate() error {
	switch {
	case in.RoomID == 0:
		return newError(KindValidation, "room_id is required")
	case in.ArrivalDate.IsZero():
		return newError(KindValidation, "arrival_date is required")
	case in.NoOfAdults <= 0:
		return newError(KindValidation, "no_of_adults must be greater than 0")
	case in.NoOfChildren < 0, in.NoOfWeekNights < 0, in.NoOfWeekendNights < 0, in.NoOfSpecialRequests < 0:
		return newError(KindValidation, "counts must not be negative")
	case in.TypeOfMealPlan < 0 || in.TypeOfMealPlan > 2:
		return newError(KindValidation, "type_of_meal_plan must be between 0 and 2")
	}
	return nil
}

// Create books one unit of a room for a client.  Derived fields are
// computed from data read inside the transaction:
//
//	lead_time                    arrival_date - today (UTC days), must be >= 1
//	arrival_month                arrival_date.month
//	no_of_previous_cancellations count of the user's history rows
//	repeated_guest               the same count as no_of_previous_cancellations
//	room_type_reserved           room.room_code
//	avg_price_per_room           room.price at booking time
//	market_segment_type          "Online"
//
// The decrement is conditional on availability, so concurrent creates
// for the last unit yield exactly one success and capacity errors for
// the rest.
func (s *BookingService) Create(ctx context.Context, who model.Identity, in CreateBookingInput) (*model.Booking, error) {
	if who.Role != model.RoleClient {
		return nil, newError(KindForbidden, "Only clients can create bookings")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	leadTime := in.ArrivalDate.DaysSince(model.NewDate(now))
	if leadTime <= 0 {
		return nil, newError(KindValidation, "Arrival date must be in the future")
	}

	var (
		booking *model.Booking
		after   *model.Room
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
		room, err := tx.GetRoom(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if room.AvailableRooms <= 0 {
			return repository.ErrNoAvailability
		}
		cancellations, err := tx.CountHistory(ctx, who.UserID)
		if err != nil {
			return err
		}
		b := &model.Booking{
			UserID:                    who.UserID,
			RoomID:                    room.ID,
			LeadTime:                  leadTime,
			MarketSegmentType:         model.MarketSegmentOnline,
			NoOfChildren:              in.NoOfChildren,
			NoOfAdults:                in.NoOfAdults,
			ArrivalDate:               in.ArrivalDate,
			ArrivalMonth:              int(in.ArrivalDate.Month()),
			NoOfPreviousCancellations: cancellations,
			RoomTypeReserved:          room.RoomCode,
			NoOfWeekNights:            in.NoOfWeekNights,
			NoOfWeekendNights:         in.NoOfWeekendNights,
			RepeatedGuest:             cancellations,
			TypeOfMealPlan:            in.TypeOfMealPlan,
			NoOfSpecialRequests:       in.NoOfSpecialRequests,
			AvgPricePerRoom:           room.Price,
			BookingTime:               now.Truncate(time.Second),
			Status:                    model.BookingConfirmed,
		}
		if after, err = tx.AdjustRoomAvailability(ctx, room.ID, -1); err != nil {
			return err
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		err = translate(err)
		s.logFailure("create booking", err, zap.String("user_id", who.UserID), zap.Uint64("room_id", in.RoomID))
		return nil, err
	}

	s.log.Info("booking created",
		zap.Uint64("booking_id", booking.ID),
		zap.String("user_id", booking.UserID),
		zap.Uint64("room_id", booking.RoomID),
		zap.Int("lead_time", booking.LeadTime),
		zap.Int("available_rooms", after.AvailableRooms),
	)
	s.publish(ctx, queue.QueueBookingCreated, booking, after.AvailableRooms)
	return booking, nil
}

// Cancel moves a confirmed booking owned by the caller to canceled,
// appends one history row and returns the unit to the room.  A second
// cancel of the same booking is a conflict and leaves availability alone.
func (s *BookingService) Cancel(ctx context.Context, who model.Identity, bookingID uint64) (*model.Booking, error) {
	return s.cancel(ctx, who, bookingID, nil)
}

// cancel runs the cancellation in one transaction.  A non-nil prediction
// is written in the same transaction.
func (s *BookingService) cancel(ctx context.Context, who model.Identity, bookingID uint64, prediction *float64) (*model.Booking, error) {
	now := s.now().UTC().Truncate(time.Second)
	var (
		booking   *model.Booking
		available int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.BookingTx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != who.UserID {
			return newError(KindForbidden, "You can only cancel your own bookings")
		}
		if b.Status != model.BookingConfirmed {
			return newError(KindConflict, "Booking is already canceled")
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingConfirmed, model.BookingCanceled); err != nil {
			return err
		}
		if err := tx.InsertHistory(ctx, &model.History{UserID: b.UserID, BookingID: b.ID, CancellationDate: now}); err != nil {
			return err
		}
		room, err := tx.AdjustRoomAvailability(ctx, b.RoomID, +1)
		switch {
		case errors.Is(err, repository.ErrRoomFull):
			// an admin edit reset availability to total; the unit is already back
			s.log.Warn("room already at total on cancel",
				zap.Uint64("booking_id", b.ID), zap.Uint64("room_id", b.RoomID))
			if room, err = tx.GetRoom(ctx, b.RoomID); err != nil {
				return err
			}
		case err != nil:
			return err
		}
		available = room.AvailableRooms
		if prediction != nil {
			if err := tx.SetPrediction(ctx, b.ID, *prediction); err != nil {
				return err
			}
			p := *prediction
			b.CancellationPrediction = &p
		}
		b.Status = model.BookingCanceled
		booking = b
		return nil
	})
	if err != nil {
		err = translate(err)
		s.logFailure("cancel booking", err, zap.String("user_id", who.UserID), zap.Uint64("booking_id", bookingID))
		return nil, err
	}

	s.log.Info("booking canceled",
		zap.Uint64("booking_id", booking.ID),
		zap.String("user_id", booking.UserID),
		zap.Uint64("room_id", booking.RoomID),
		zap.Int("available_rooms", available),
	)
	s.publish(ctx, queue.QueueBookingCanceled, booking, available)
	return booking, nil
}

// ListFilter narrows List.  UserID is honoured for admins only.
type ListFilter struct {
	UserID string
	Status model.BookingStatus
	Skip   int
	Limit  int
}

// List returns the caller's bookings newest first.  Admins see every
// user's bookings unless UserID narrows them.
func (s *BookingService) List(ctx context.Context, who model.Identity, f ListFilter) ([]model.Booking, error) {
	rf := repository.BookingFilter{UserID: who.UserID, Status: f.Status, Skip: f.Skip, Limit: f.Limit}
	if who.IsAdmin() {
		rf.UserID = f.UserID
	}
	out, err := s.store.ListBookings(ctx, rf)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Get returns one booking to its owner or an admin.
func (s *BookingService) Get(ctx context.Context, who model.Identity, bookingID uint64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, translate(err)
	}
	if !who.IsAdmin() && b.UserID != who.UserID {
		return nil, newError(KindForbidden, "Access denied")
	}
	return b, nil
}

// UpdateBookingInput lists the mutable booking fields.  Nil means unchanged.
type UpdateBookingInput struct {
	CancellationPrediction *float64
	Status                 *model.BookingStatus
}

// Update applies a partial update for the owner or an admin.  A status
// change to canceled runs the full Cancel flow; canceled is terminal.
func (s *BookingService) Update(ctx context.Context, who model.Identity, bookingID uint64, in UpdateBookingInput) (*model.Booking, error) {
	if in.CancellationPrediction == nil && in.Status == nil {
		return nil, newError(KindValidation, "No fields to update")
	}
	if p := in.CancellationPrediction; p != nil && (*p < 0 || *p > 1) {
		return nil, newError(KindValidation, "cancellation_prediction must be between 0 and 1")
	}
	b, err := s.Get(ctx, who, bookingID)
	if err != nil {
		return nil, err
	}

	cancel := false
	if in.Status != nil {
		switch {
		case *in.Status == b.Status && b.Status == model.BookingConfirmed:
		case *in.Status == model.BookingCanceled && b.Status == model.BookingConfirmed:
			if b.UserID != who.UserID {
				return nil, newError(KindForbidden, "You can only cancel your own bookings")
			}
			cancel = true
		default:
			return nil, newError(KindConflict, "Booking is already canceled")
		}
	}

	if cancel {
		return s.cancel(ctx, who, b.ID, in.CancellationPrediction)
	}
	if p := in.CancellationPrediction; p != nil {
		if err := s.store.SetPrediction(ctx, b.ID, *p); err != nil {
			return nil, translate(err)
		}
	}
	out, err := s.store.GetBooking(ctx, b.ID)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Prediction is the result of scoring a booking.
type Prediction struct {
	BookingID              uint64    `json:"booking_id"`
	CancellationPrediction float64   `json:"cancellation_prediction"`
	ConfidenceScore        float64   `json:"confidence_score"`
	PredictionTimestamp    time.Time `json:"prediction_timestamp"`
}

// PredictCancellation scores a booking, stores the probability on it and
// returns the score.  Admin only.
func (s *BookingService) PredictCancellation(ctx context.Context, who model.Identity, bookingID uint64) (*Prediction, error) {
	if !who.IsAdmin() {
		return nil, newError(KindForbidden, "Admin access required")
	}
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, translate(err)
	}
	p, confidence := s.scorer.Score(b)
	if err := s.store.SetPrediction(ctx, b.ID, p); err != nil {
		return nil, translate(err)
	}
	s.log.Info("cancellation predicted", zap.Uint64("booking_id", b.ID), zap.Float64("probability", p))
	return &Prediction{
		BookingID:              b.ID,
		CancellationPrediction: p,
		ConfidenceScore:        confidence,
		PredictionTimestamp:    s.now().UTC(),
	}, nil
}

// History lists cancellation events.  Admin only.
func (s *BookingService) History(ctx context.Context, who model.Identity, f repository.HistoryFilter) ([]model.History, error) {
	if !who.IsAdmin() {
		return nil, newError(KindForbidden, "Admin access required")
	}
	out, err := s.store.ListHistory(ctx, f)
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *BookingService) publish(ctx context.Context, kind string, b *model.Booking, available int) {
	ev := queue.BookingEvent{
		Type:             kind,
		BookingID:        b.ID,
		UserID:           b.UserID,
		RoomID:           b.RoomID,
		RoomTypeReserved: b.RoomTypeReserved,
		ArrivalDate:      b.ArrivalDate.String(),
		LeadTime:         b.LeadTime,
		AvailableRooms:   available,
		OccurredAt:       s.now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn("booking event not published", zap.String("type", kind), zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}

func (s *BookingService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("kind", KindOf(err).String()), zap.Error(err))
	if KindOf(err) == KindInternal {
		s.log.Error(op+" failed", fields...)
		return
	}
	s.log.Info(op+" rejected", fields...)
}
