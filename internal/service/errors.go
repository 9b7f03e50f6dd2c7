package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// Kind classifies a service failure.  Handlers map kinds to HTTP status
// codes; nothing else about an error is inspected.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindCapacity
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindCapacity:
		return "capacity"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Error is the error type returned by every service operation.  Message
// is safe to show to API clients; Err carries the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// translate maps repository sentinels to service errors.  Anything it
// does not recognise becomes an internal error with a generic message.
func translate(err error) error {
	var se *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return err
	case errors.Is(err, repository.ErrRoomNotFound):
		return &Error{Kind: KindNotFound, Message: "Room not found", Err: err}
	case errors.Is(err, repository.ErrBookingNotFound):
		return &Error{Kind: KindNotFound, Message: "Booking not found", Err: err}
	case errors.Is(err, repository.ErrNoAvailability):
		return &Error{Kind: KindCapacity, Message: "Room is not available", Err: err}
	case errors.Is(err, repository.ErrConflict):
		return &Error{Kind: KindConflict, Message: "Booking is already canceled", Err: err}
	}
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}
