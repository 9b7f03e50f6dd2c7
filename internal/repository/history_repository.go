package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// HistoryRepo appends and reads cancellation history.  There is no
// update or delete: the table is an audit trail.
type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// HistoryFilter narrows List.  An empty UserID lists all users.
type HistoryFilter struct {
	UserID string
	Skip   int
	Limit  int
}

// CountByUserTx returns how many cancellations userID has on record.
func (r *HistoryRepo) CountByUserTx(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM history WHERE user_id = ?", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// CreateTx appends a cancellation row inside tx.
func (r *HistoryRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.History) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO history (user_id, booking_id, cancellation_date) VALUES (?, ?, ?)",
		h.UserID, h.BookingID, h.CancellationDate)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// List returns cancellations newest first.
func (r *HistoryRepo) List(ctx context.Context, f HistoryFilter) ([]model.History, error) {
	q := "SELECT history_id, user_id, booking_id, cancellation_date FROM history"
	var args []any
	if f.UserID != "" {
		q += " WHERE user_id = ?"
		args = append(args, f.UserID)
	}
	q += " ORDER BY cancellation_date DESC, history_id DESC LIMIT ? OFFSET ?"
	args = append(args, limitOr(f.Limit, 100), max(f.Skip, 0))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	out := []model.History{}
	for rows.Next() {
		var h model.History
		if err := rows.Scan(&h.ID, &h.UserID, &h.BookingID, &h.CancellationDate); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
