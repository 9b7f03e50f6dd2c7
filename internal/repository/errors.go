// Package repository defines the MySQL data access layer and the error
// values shared across repositories.  Handlers and services compare
// against these sentinels with errors.Is; driver errors are wrapped.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an update or delete cannot proceed
// because of the current state of the row, such as canceling a booking
// that is already canceled or deleting a room with confirmed bookings.
var ErrConflict = errors.New("conflict")

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomCodeExists  = errors.New("room code already exists")
	ErrNoAvailability  = errors.New("room is not available")
	ErrRoomFull        = errors.New("room availability already at total")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
)

// isDuplicate reports whether err is a MySQL unique key violation (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isRowReferenced reports whether err is a MySQL foreign key violation on
// delete (1451).
func isRowReferenced(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1451
}
