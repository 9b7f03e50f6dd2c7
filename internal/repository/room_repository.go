package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomRepo manages the `rooms` table.  Availability counters are only
// changed through AdjustAvailabilityTx (booking lifecycle) or Update
// (admin edits); both keep 0 <= available_rooms <= total_rooms.
type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// RoomFilter narrows List.  Zero values mean "no filter".
type RoomFilter struct {
	RoomType      string
	AvailableOnly bool
	Skip          int
	Limit         int
}

const roomColumns = `room_id, room_type, room_code, total_rooms, available_rooms, price`

type rowScanner interface{ Scan(dest ...any) error }

func scanRoom(s rowScanner) (*model.Room, error) {
	var rm model.Room
	if err := s.Scan(&rm.ID, &rm.RoomType, &rm.RoomCode, &rm.TotalRooms, &rm.AvailableRooms, &rm.Price); err != nil {
		return nil, err
	}
	return &rm, nil
}

// Create inserts a room and sets its generated id.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (room_type, room_code, total_rooms, available_rooms, price) VALUES (?, ?, ?, ?, ?)`,
		rm.RoomType, rm.RoomCode, rm.TotalRooms, rm.AvailableRooms, rm.Price)
	if err != nil {
		if isDuplicate(err) {
			return ErrRoomCodeExists
		}
		return fmt.Errorf("insert room: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rm.ID = uint64(id)
	return nil
}

// GetByID returns a room or ErrRoomNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE room_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

// GetByIDTx reads a room inside tx.
func (r *RoomRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Room, error) {
	rm, err := scanRoom(tx.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE room_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

// List returns rooms ordered by id.
func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	var (
		where []string
		args  []any
	)
	if f.RoomType != "" {
		where = append(where, "room_type = ?")
		args = append(args, f.RoomType)
	}
	if f.AvailableOnly {
		where = append(where, "available_rooms > 0")
	}
	q := "SELECT " + roomColumns + " FROM rooms"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY room_id LIMIT ? OFFSET ?"
	args = append(args, limitOr(f.Limit, 100), max(f.Skip, 0))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()
	out := []model.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	return out, rows.Err()
}

// Update overwrites the mutable columns of a room.  The room must exist;
// the CHECK constraint rejects available > total.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	if _, err := r.GetByID(ctx, rm.ID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET room_type = ?, room_code = ?, total_rooms = ?, available_rooms = ?, price = ? WHERE room_id = ?`,
		rm.RoomType, rm.RoomCode, rm.TotalRooms, rm.AvailableRooms, rm.Price, rm.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrRoomCodeExists
		}
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

// Delete removes a room.  It returns ErrConflict while confirmed bookings
// still reference it.  The room row is locked so a concurrent booking
// cannot slip in between the check and the delete.  Canceled bookings are
// kept with a NULL room_id.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, "SELECT room_id FROM rooms WHERE room_id = ? FOR UPDATE", id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	var active int
	if err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status = ?", id, string(model.BookingConfirmed),
	).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	// canceled bookings and their history outlive the room
	if _, err = tx.ExecContext(ctx,
		"UPDATE bookings SET room_id = NULL WHERE room_id = ? AND status = ?", id, string(model.BookingCanceled),
	); err != nil {
		return fmt.Errorf("detach canceled bookings: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM rooms WHERE room_id = ?", id); err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AdjustAvailabilityTx moves available_rooms by delta inside tx and
// returns the room as it is after the change.  The update is conditional,
// so two transactions racing for the last unit cannot both succeed:
//   - delta < 0 fails with ErrNoAvailability when fewer than -delta units remain
//   - delta > 0 fails with ErrRoomFull when the result would exceed total_rooms
//
// A missing room yields ErrRoomNotFound.
func (r *RoomRepo) AdjustAvailabilityTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) (*model.Room, error) {
	if delta == 0 {
		return r.GetByIDTx(ctx, tx, id)
	}
	var (
		res sql.Result
		err error
	)
	if delta < 0 {
		res, err = tx.ExecContext(ctx,
			"UPDATE rooms SET available_rooms = available_rooms - ? WHERE room_id = ? AND available_rooms >= ?",
			-delta, id, -delta)
	} else {
		res, err = tx.ExecContext(ctx,
			"UPDATE rooms SET available_rooms = available_rooms + ? WHERE room_id = ? AND available_rooms + ? <= total_rooms",
			delta, id, delta)
	}
	if err != nil {
		return nil, fmt.Errorf("adjust availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	rm, err := r.GetByIDTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if delta < 0 {
			return nil, ErrNoAvailability
		}
		return nil, ErrRoomFull
	}
	return rm, nil
}

// limitOr clamps a page size to [1, 1000] with def for unset values.
func limitOr(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > 1000:
		return 1000
	}
	return limit
}
