package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// BookingRepo provides persistence for bookings.  Writes that belong to
// the booking lifecycle come in *Tx flavours; the caller owns the
// transaction.  All timestamps are UTC.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingFilter narrows List.  An empty UserID lists every user's bookings.
type BookingFilter struct {
	UserID string
	Status model.BookingStatus
	Skip   int
	Limit  int
}

const bookingColumns = `booking_id, user_id, room_id, lead_time, market_segment_type, no_of_children,
	no_of_adults, arrival_date, arrival_month, no_of_previous_cancellations, room_type_reserved,
	no_of_week_nights, no_of_weekend_nights, repeated_guest, type_of_meal_plan, no_of_special_requests,
	avg_price_per_room, booking_time, cancellation_prediction, status`

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		room   sql.NullInt64
		pred   sql.NullFloat64
		status string
	)
	err := s.Scan(&b.ID, &b.UserID, &room, &b.LeadTime, &b.MarketSegmentType, &b.NoOfChildren,
		&b.NoOfAdults, &b.ArrivalDate, &b.ArrivalMonth, &b.NoOfPreviousCancellations, &b.RoomTypeReserved,
		&b.NoOfWeekNights, &b.NoOfWeekendNights, &b.RepeatedGuest, &b.TypeOfMealPlan, &b.NoOfSpecialRequests,
		&b.AvgPricePerRoom, &b.BookingTime, &pred, &status)
	if err != nil {
		return nil, err
	}
	// room_id is NULL once the room of a canceled booking is deleted
	if room.Valid {
		b.RoomID = uint64(room.Int64)
	}
	if pred.Valid {
		p := pred.Float64
		b.CancellationPrediction = &p
	}
	if b.Status, err = model.ParseBookingStatus(status); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateTx inserts a booking inside tx and sets its generated id.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, room_id, lead_time, market_segment_type, no_of_children,
		no_of_adults, arrival_date, arrival_month, no_of_previous_cancellations, room_type_reserved,
		no_of_week_nights, no_of_weekend_nights, repeated_guest, type_of_meal_plan, no_of_special_requests,
		avg_price_per_room, booking_time, cancellation_prediction, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.RoomID, b.LeadTime, b.MarketSegmentType, b.NoOfChildren,
		b.NoOfAdults, b.ArrivalDate, b.ArrivalMonth, b.NoOfPreviousCancellations, b.RoomTypeReserved,
		b.NoOfWeekNights, b.NoOfWeekendNights, b.RepeatedGuest, b.TypeOfMealPlan, b.NoOfSpecialRequests,
		b.AvgPricePerRoom, b.BookingTime, b.CancellationPrediction, string(b.Status))
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID returns a booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE booking_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetForUpdateTx reads a booking and locks its row until tx ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE booking_id = ? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// List returns bookings newest first.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := "SELECT " + bookingColumns + " FROM bookings"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY booking_time DESC, booking_id DESC LIMIT ? OFFSET ?"
	args = append(args, limitOr(f.Limit, 100), max(f.Skip, 0))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateStatusTx moves a booking from one status to another.  It returns
// ErrConflict when the row is no longer in the expected status.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.BookingStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE booking_id = ? AND status = ?",
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// SetPrediction stores the cancellation probability of a booking.
func (r *BookingRepo) SetPrediction(ctx context.Context, id uint64, p float64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE bookings SET cancellation_prediction = ? WHERE booking_id = ?", p, id)
	return err
}

// SetPredictionTx stores the probability inside tx.  Callers hold the row
// lock from GetForUpdateTx, so existence is already known.
func (r *BookingRepo) SetPredictionTx(ctx context.Context, tx *sql.Tx, id uint64, p float64) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE bookings SET cancellation_prediction = ? WHERE booking_id = ?", p, id); err != nil {
		return fmt.Errorf("set prediction: %w", err)
	}
	return nil
}
