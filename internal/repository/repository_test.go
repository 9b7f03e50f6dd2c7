package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func roomRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"room_id", "room_type", "room_code", "total_rooms", "available_rooms", "price"})
}

var (
	qDecrement = regexp.QuoteMeta("UPDATE rooms SET available_rooms = available_rooms - ?")
	qIncrement = regexp.QuoteMeta("UPDATE rooms SET available_rooms = available_rooms + ?")
	qRoomByID  = regexp.QuoteMeta("SELECT room_id, room_type, room_code, total_rooms, available_rooms, price FROM rooms WHERE room_id = ?")
)

func TestAdjustAvailabilityTx_Decrement(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(qDecrement).WithArgs(1, uint64(7), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qRoomByID).WithArgs(uint64(7)).
		WillReturnRows(roomRows().AddRow(7, "Deluxe", "room_type_1", 5, 4, 120.0))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	rm, err := repo.AdjustAvailabilityTx(context.Background(), tx, 7, -1)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 4, rm.AvailableRooms)
	assert.Equal(t, "room_type_1", rm.RoomCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustAvailabilityTx_SoldOut(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(qDecrement).WithArgs(1, uint64(7), 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(qRoomByID).WithArgs(uint64(7)).
		WillReturnRows(roomRows().AddRow(7, "Deluxe", "room_type_1", 5, 0, 120.0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.AdjustAvailabilityTx(context.Background(), tx, 7, -1)
	assert.ErrorIs(t, err, ErrNoAvailability)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustAvailabilityTx_MissingRoom(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(qDecrement).WithArgs(1, uint64(99), 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(qRoomByID).WithArgs(uint64(99)).WillReturnRows(roomRows())
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.AdjustAvailabilityTx(context.Background(), tx, 99, -1)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustAvailabilityTx_IncrementAtTotal(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(qIncrement).WithArgs(1, uint64(7), 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(qRoomByID).WithArgs(uint64(7)).
		WillReturnRows(roomRows().AddRow(7, "Deluxe", "room_type_1", 5, 5, 120.0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = repo.AdjustAvailabilityTx(context.Background(), tx, 7, 1)
	assert.ErrorIs(t, err, ErrRoomFull)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomCreate_DuplicateCode(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.Room{RoomType: "Suite", RoomCode: "room_type_2", TotalRooms: 3, AvailableRooms: 3, Price: 300})
	assert.ErrorIs(t, err, ErrRoomCodeExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomList_Filters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE room_type = ? AND available_rooms > 0 ORDER BY room_id LIMIT ? OFFSET ?")).
		WithArgs("Deluxe", 10, 20).
		WillReturnRows(roomRows().AddRow(1, "Deluxe", "room_type_1", 5, 2, 99.5))

	rooms, err := repo.List(context.Background(), RoomFilter{RoomType: "Deluxe", AvailableOnly: true, Skip: 20, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, 99.5, rooms[0].Price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomDelete_ActiveBookings(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM rooms WHERE room_id = ? FOR UPDATE")).
		WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status = ?")).
		WithArgs(uint64(3), "confirmed").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomDelete_OK(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM rooms WHERE room_id = ? FOR UPDATE")).
		WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WithArgs(uint64(3), "confirmed").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET room_id = NULL WHERE room_id = ? AND status = ?")).
		WithArgs(uint64(3), "canceled").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rooms WHERE room_id = ?")).
		WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomDelete_OnlyCanceledBookings(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM rooms WHERE room_id = ? FOR UPDATE")).
		WithArgs(uint64(4)).WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status = ?")).
		WithArgs(uint64(4), "confirmed").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET room_id = NULL WHERE room_id = ? AND status = ?")).
		WithArgs(uint64(4), "canceled").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rooms WHERE room_id = ?")).
		WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomDelete_StillReferenced(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_id FROM rooms WHERE room_id = ? FOR UPDATE")).
		WithArgs(uint64(4)).WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status = ?")).
		WithArgs(uint64(4), "confirmed").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET room_id = NULL WHERE room_id = ? AND status = ?")).
		WithArgs(uint64(4), "canceled").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rooms WHERE room_id = ?")).
		WithArgs(uint64(4)).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingUpdateStatusTx_AlreadyCanceled(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE booking_id = ? AND status = ?")).
		WithArgs("canceled", uint64(11), "confirmed").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.UpdateStatusTx(context.Background(), tx, 11, model.BookingConfirmed, model.BookingCanceled)
	assert.ErrorIs(t, err, ErrConflict)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingList_ScansRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	arrival := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	booked := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	cols := []string{"booking_id", "user_id", "room_id", "lead_time", "market_segment_type", "no_of_children",
		"no_of_adults", "arrival_date", "arrival_month", "no_of_previous_cancellations", "room_type_reserved",
		"no_of_week_nights", "no_of_weekend_nights", "repeated_guest", "type_of_meal_plan", "no_of_special_requests",
		"avg_price_per_room", "booking_time", "cancellation_prediction", "status"}
	rows := sqlmock.NewRows(cols).AddRow(5, "C1a2b3c4d", 7, 84, "Online", 1,
		2, arrival, 12, 0, "room_type_1",
		3, 2, 0, 1, 0,
		120.0, booked, nil, "confirmed").
		AddRow(4, "C1a2b3c4d", nil, 30, "Online", 0,
			1, arrival, 12, 0, "room_type_2",
			1, 0, 0, 1, 0,
			80.0, booked, 0.62, "canceled")

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE user_id = ? ORDER BY booking_time DESC")).
		WithArgs("C1a2b3c4d", 100, 0).WillReturnRows(rows)

	out, err := repo.List(context.Background(), BookingFilter{UserID: "C1a2b3c4d"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	b := out[0]
	assert.Equal(t, uint64(5), b.ID)
	assert.Equal(t, uint64(7), b.RoomID)
	assert.Equal(t, "2026-12-24", b.ArrivalDate.String())
	assert.Nil(t, b.CancellationPrediction)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	// the room of a canceled booking may have been deleted
	detached := out[1]
	assert.Equal(t, uint64(0), detached.RoomID)
	require.NotNil(t, detached.CancellationPrediction)
	assert.InDelta(t, 0.62, *detached.CancellationPrediction, 1e-9)
	assert.Equal(t, model.BookingCanceled, detached.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreInTx_RollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(qDecrement).WithArgs(1, uint64(7), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qRoomByID).WithArgs(uint64(7)).
		WillReturnRows(roomRows().AddRow(7, "Deluxe", "room_type_1", 5, 4, 120.0))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx BookingTx) error {
		if _, err := tx.AdjustRoomAvailability(ctx, 7, -1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreInTx_CommitsHistory(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db)
	when := time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO history (user_id, booking_id, cancellation_date)")).
		WithArgs("C00000001", uint64(4), when).WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	h := &model.History{UserID: "C00000001", BookingID: 4, CancellationDate: when}
	err := store.InTx(context.Background(), func(ctx context.Context, tx BookingTx) error {
		return tx.InsertHistory(ctx, h)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), h.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "  Ghost@Example.com ")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func tokenRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"})
}

func TestTokenValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	q := regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash = ?")
	now := time.Now().UTC()

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(tokenRows().AddRow(1, "C00000001", "live", now.Add(time.Hour), nil, now))
	mock.ExpectQuery(q).WithArgs("revoked").
		WillReturnRows(tokenRows().AddRow(2, "C00000001", "revoked", now.Add(time.Hour), now, now))
	mock.ExpectQuery(q).WithArgs("expired").
		WillReturnRows(tokenRows().AddRow(3, "C00000001", "expired", now.Add(-time.Minute), nil, now))
	mock.ExpectQuery(q).WithArgs("unknown").WillReturnError(sql.ErrNoRows)

	uid, err := repo.ValidateRefresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, "C00000001", uid)
	for _, h := range []string{"revoked", "expired", "unknown"} {
		_, err = repo.ValidateRefresh(context.Background(), h)
		assert.ErrorIs(t, err, ErrInvalidRefresh, h)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRevokeByHash_SingleUse(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	q := regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE token_hash = ?")

	mock.ExpectExec(q).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("h").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RevokeByHash(context.Background(), "h"))
	assert.ErrorIs(t, repo.RevokeByHash(context.Background(), "h"), ErrInvalidRefresh)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenDeleteExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	cutoff := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < ?")).
		WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
