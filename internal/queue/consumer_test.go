package queue

import (
    "context"
    "encoding/json"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zaptest/observer"
)

func TestDecodeEvent(t *testing.T) {
    body, err := json.Marshal(BookingEvent{Type: QueueBookingCreated, BookingID: 3, UserID: "C1"})
    require.NoError(t, err)
    ev, err := DecodeEvent(body)
    require.NoError(t, err)
    assert.Equal(t, uint64(3), ev.BookingID)

    _, err = DecodeEvent([]byte(`{"type":"booking.created"}`))
    assert.Error(t, err)
    _, err = DecodeEvent([]byte(`{"type":"booking.moved","booking_id":1,"user_id":"C1"}`))
    assert.Error(t, err)
    _, err = DecodeEvent([]byte(`not json`))
    assert.Error(t, err)
}

func TestHandleWritesBookingLog(t *testing.T) {
    core, logs := observer.New(zap.InfoLevel)
    c := &Consumer{Log: zap.NewNop(), BookingLog: zap.New(core)}

    body, err := json.Marshal(BookingEvent{
        Type:             QueueBookingCanceled,
        BookingID:        9,
        UserID:           "C2",
        RoomTypeReserved: "room_type_1",
        OccurredAt:       time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
    })
    require.NoError(t, err)
    require.NoError(t, c.handle(body))

    entries := logs.All()
    require.Len(t, entries, 1)
    assert.Equal(t, "Booking canceled", entries[0].Message)
    assert.Equal(t, "room_type_1", entries[0].ContextMap()["room_type_reserved"])
}

func TestSleepCtxCanceled(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    assert.False(t, sleepCtx(ctx, time.Hour))
}
