package model

import (
    "encoding/json"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
    tests := []struct {
        in      string
        want    Role
        wantErr bool
    }{
        {in: "client", want: RoleClient},
        {in: "ADMIN", want: RoleAdmin},
        {in: " Admin ", want: RoleAdmin},
        {in: "owner", wantErr: true},
        {in: "", wantErr: true},
    }
    for _, tt := range tests {
        t.Run(tt.in, func(t *testing.T) {
            got, err := ParseRole(tt.in)
            if tt.wantErr {
                assert.Error(t, err)
                return
            }
            require.NoError(t, err)
            assert.Equal(t, tt.want, got)
        })
    }
}

func TestRoleIDPrefix(t *testing.T) {
    assert.Equal(t, "C", RoleClient.IDPrefix())
    assert.Equal(t, "A", RoleAdmin.IDPrefix())
}

func TestParseBookingStatus(t *testing.T) {
    s, err := ParseBookingStatus("Canceled")
    require.NoError(t, err)
    assert.Equal(t, BookingCanceled, s)

    _, err = ParseBookingStatus("pending")
    assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
    var payload struct {
        Arrival Date `json:"arrival_date"`
    }
    require.NoError(t, json.Unmarshal([]byte(`{"arrival_date":"2026-03-14"}`), &payload))
    assert.Equal(t, time.March, payload.Arrival.Month())
    assert.Equal(t, 14, payload.Arrival.Day())

    out, err := json.Marshal(payload)
    require.NoError(t, err)
    assert.JSONEq(t, `{"arrival_date":"2026-03-14"}`, string(out))

    err = json.Unmarshal([]byte(`{"arrival_date":"14/03/2026"}`), &payload)
    assert.Error(t, err)
}

func TestDateScan(t *testing.T) {
    var d Date
    require.NoError(t, d.Scan(time.Date(2026, 5, 2, 13, 4, 0, 0, time.UTC)))
    assert.Equal(t, "2026-05-02", d.String())

    require.NoError(t, d.Scan([]byte("2026-05-03")))
    assert.Equal(t, "2026-05-03", d.String())

    require.NoError(t, d.Scan("2026-05-04 00:00:00"))
    assert.Equal(t, "2026-05-04", d.String())

    assert.Error(t, d.Scan(42))
}

func TestDateDaysSince(t *testing.T) {
    today := NewDate(time.Date(2026, 1, 30, 23, 59, 0, 0, time.UTC))
    arrival, err := ParseDate("2026-02-09")
    require.NoError(t, err)
    assert.Equal(t, 10, arrival.DaysSince(today))
    assert.Equal(t, -10, today.DaysSince(arrival))
}
