package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Consumer listens on the booking queues and writes one structured entry
// per event to the booking log.  Log is the process logger; BookingLog is
// the dedicated (rotating) sink for booking entries.
type Consumer struct {
    URL        string
    Log        *zap.Logger
    BookingLog *zap.Logger
}

// Run connects to RabbitMQ and consumes until ctx is canceled.  Dial and
// channel failures are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("booking-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("booking-consumer: consume loop ended; reconnecting", zap.Error(err))
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("booking-consumer: set QoS failed", zap.Error(err))
    }

    deliveries := make(chan amqp.Delivery)
    for _, name := range Queues {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        go func(msgs <-chan amqp.Delivery) {
            for d := range msgs {
                select {
                case deliveries <- d:
                case <-ctx.Done():
                    return
                }
            }
        }(msgs)
    }

    closed := ch.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("channel closed")
        case d := <-deliveries:
            if err := c.handle(d.Body); err != nil {
                c.Log.Error("booking-consumer: handle message failed", zap.Error(err), zap.String("queue", d.RoutingKey))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *Consumer) handle(body []byte) error {
    ev, err := DecodeEvent(body)
    if err != nil {
        return err
    }
    c.BookingLog.Info(Describe(ev), EventFields(ev)...)
    return nil
}

// DecodeEvent parses and sanity-checks a message body.
func DecodeEvent(body []byte) (BookingEvent, error) {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return ev, fmt.Errorf("unmarshal: %w", err)
    }
    if ev.BookingID == 0 || ev.UserID == "" {
        return ev, errors.New("event missing booking_id or user_id")
    }
    switch ev.Type {
    case QueueBookingCreated, QueueBookingCanceled:
    default:
        return ev, fmt.Errorf("unknown event type %q", ev.Type)
    }
    return ev, nil
}

// Describe returns the log message for an event.
func Describe(ev BookingEvent) string {
    if ev.Type == QueueBookingCanceled {
        return "Booking canceled"
    }
    return "Booking created"
}

// EventFields renders an event as zap fields.
func EventFields(ev BookingEvent) []zap.Field {
    return []zap.Field{
        zap.Uint64("booking_id", ev.BookingID),
        zap.String("user_id", ev.UserID),
        zap.Uint64("room_id", ev.RoomID),
        zap.String("room_type_reserved", ev.RoomTypeReserved),
        zap.String("arrival_date", ev.ArrivalDate),
        zap.Int("lead_time", ev.LeadTime),
        zap.Int("available_rooms", ev.AvailableRooms),
        zap.Time("occurred_at", ev.OccurredAt),
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
