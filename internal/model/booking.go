package model

import (
    "database/sql/driver"
    "fmt"
    "strings"
    "time"
)

// BookingStatus is the lifecycle state of a booking.  The only legal
// transition is confirmed -> canceled; canceled is terminal.
type BookingStatus string

const (
    BookingConfirmed BookingStatus = "confirmed"
    BookingCanceled  BookingStatus = "canceled"
)

// ParseBookingStatus validates a raw status string.
func ParseBookingStatus(s string) (BookingStatus, error) {
    switch BookingStatus(strings.ToLower(strings.TrimSpace(s))) {
    case BookingConfirmed:
        return BookingConfirmed, nil
    case BookingCanceled:
        return BookingCanceled, nil
    }
    return "", fmt.Errorf("unknown booking status %q", s)
}

// MarketSegmentOnline is recorded on every booking that arrives through the API.
const MarketSegmentOnline = "Online"

// Room is one room category of the hotel with its inventory counters.
// AvailableRooms stays within [0, TotalRooms]; only the booking
// lifecycle (and direct admin edits) change it.
type Room struct {
    ID             uint64  `json:"room_id"`
    RoomType       string  `json:"room_type"`
    RoomCode       string  `json:"room_code"`
    TotalRooms     int     `json:"total_rooms"`
    AvailableRooms int     `json:"available_rooms"`
    Price          float64 `json:"price"`
}

// Booking mirrors the `bookings` table.  LeadTime, ArrivalMonth,
// NoOfPreviousCancellations, RepeatedGuest, RoomTypeReserved and
// AvgPricePerRoom are derived on the server at creation time.
type Booking struct {
    ID                        uint64        `json:"booking_id"`
    UserID                    string        `json:"user_id"`
    RoomID                    uint64        `json:"room_id"`
    LeadTime                  int           `json:"lead_time"`
    MarketSegmentType         string        `json:"market_segment_type"`
    NoOfChildren              int           `json:"no_of_children"`
    NoOfAdults                int           `json:"no_of_adults"`
    ArrivalDate               Date          `json:"arrival_date"`
    ArrivalMonth              int           `json:"arrival_month"`
    NoOfPreviousCancellations int           `json:"no_of_previous_cancellations"`
    RoomTypeReserved          string        `json:"room_type_reserved"`
    NoOfWeekNights            int           `json:"no_of_week_nights"`
    NoOfWeekendNights         int           `json:"no_of_weekend_nights"`
    RepeatedGuest             int           `json:"repeated_guest"`
    TypeOfMealPlan            int           `json:"type_of_meal_plan"`
    NoOfSpecialRequests       int           `json:"no_of_special_requests"`
    AvgPricePerRoom           float64       `json:"avg_price_per_room"`
    BookingTime               time.Time     `json:"booking_time"`
    CancellationPrediction    *float64      `json:"cancellation_prediction"`
    Status                    BookingStatus `json:"status"`
}

// History is one cancellation event.  Rows are only ever appended.
type History struct {
    ID               uint64    `json:"history_id"`
    UserID           string    `json:"user_id"`
    BookingID        uint64    `json:"booking_id"`
    CancellationDate time.Time `json:"cancellation_date"`
}

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day, always normalised to
// midnight UTC.  It encodes as "YYYY-MM-DD" in JSON and SQL.
type Date struct{ time.Time }

// NewDate truncates t to its calendar day (in t's own location) and
// returns it as a UTC Date.
func NewDate(t time.Time) Date {
    y, m, d := t.Date()
    return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
    t, err := time.Parse(DateLayout, strings.TrimSpace(s))
    if err != nil {
        return Date{}, err
    }
    return NewDate(t), nil
}

// DaysSince returns the whole number of days from other to d.
func (d Date) DaysSince(other Date) int {
    return int(d.Sub(other.Time).Hours() / 24)
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
    if d.IsZero() {
        return []byte("null"), nil
    }
    return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
    s := strings.Trim(string(b), `"`)
    if s == "" || s == "null" {
        *d = Date{}
        return nil
    }
    parsed, err := ParseDate(s)
    if err != nil {
        return fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
    }
    *d = parsed
    return nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src any) error {
    switch v := src.(type) {
    case time.Time:
        *d = NewDate(v)
        return nil
    case []byte:
        return d.scanString(string(v))
    case string:
        return d.scanString(v)
    case nil:
        *d = Date{}
        return nil
    }
    return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) scanString(s string) error {
    if len(s) > len(DateLayout) {
        s = s[:len(DateLayout)]
    }
    parsed, err := ParseDate(s)
    if err != nil {
        return err
    }
    *d = parsed
    return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
    if d.IsZero() {
        return nil, nil
    }
    return d.String(), nil
}
