// Package queue defines the booking event payloads exchanged over RabbitMQ
// and the background consumer that records them.
package queue

import "time"

// Queue names.  Each event type has its own durable queue; the routing key
// equals the queue name on the default exchange.
const (
    QueueBookingCreated  = "booking.created"
    QueueBookingCanceled = "booking.canceled"
)

// Queues lists every queue the consumer subscribes to.
var Queues = []string{QueueBookingCreated, QueueBookingCanceled}

// BookingEvent is published after a booking commits or is canceled.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
    Type             string    `json:"type"` // queue name the event was published to
    BookingID        uint64    `json:"booking_id"`
    UserID           string    `json:"user_id"`
    RoomID           uint64    `json:"room_id"`
    RoomTypeReserved string    `json:"room_type_reserved"`
    ArrivalDate      string    `json:"arrival_date"`
    LeadTime         int       `json:"lead_time"`
    AvailableRooms   int       `json:"available_rooms"` // room availability after the change
    OccurredAt       time.Time `json:"occurred_at"`
}
