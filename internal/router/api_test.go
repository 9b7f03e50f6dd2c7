package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/repository/memory"
	"github.com/iliyamo/hotel-reservation/internal/service"
)

const testSecret = "router-test-secret"

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]*model.User
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.byID {
		if x.Email == strings.ToLower(u.Email) {
			return repository.ErrEmailExists
		}
	}
	u.Email = strings.ToLower(u.Email)
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, found := f.byID[id]; found {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

type fakeTokens struct {
	mu      sync.Mutex
	owner   map[string]string
	revoked map[string]bool
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owner[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, found := f.owner[hash]
	if !found || f.revoked[hash] {
		return "", repository.ErrInvalidRefresh
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, found := f.owner[hash]; !found || f.revoked[hash] {
		return repository.ErrInvalidRefresh
	}
	f.revoked[hash] = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, uid := range f.owner {
		if uid == userID {
			f.revoked[h] = true
		}
	}
	return nil
}

type app struct {
	e      *echo.Echo
	store  *memory.Store
	purges int
	mu     sync.Mutex
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := zap.NewNop()
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 1, BcryptCost: 4, Version: "test", Env: "test"}
	a := &app{e: echo.New(), store: memory.NewStore()}
	purge := func(context.Context) error {
		a.mu.Lock()
		a.purges++
		a.mu.Unlock()
		return nil
	}
	deny := middleware.NewDenylist()
	jwt := middleware.JWTAuth(cfg.JWTSecret, deny)
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	Configure(a.e, log)
	RegisterRoutes(a.e, handler.NewHealthHandler(nil, cfg.Version, cfg.Env))
	users := &fakeUsers{byID: map[string]*model.User{}}
	tokens := &fakeTokens{owner: map[string]string{}, revoked: map[string]bool{}}
	RegisterAuth(a.e, handler.NewAuthHandler(cfg, users, tokens, deny, log), jwt, pass)
	RegisterRooms(a.e, handler.NewRoomHandler(a.store, purge, log), jwt, pass)
	svc := service.NewBookingService(a.store, nil, log)
	RegisterBookings(a.e, handler.NewBookingHandler(svc, purge, log), jwt)
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *app) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rdr *strings.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = strings.NewReader(string(bs))
	} else {
		rdr = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *app) register(t *testing.T, email, role string) string {
	t.Helper()
	code, _ := a.do(t, http.MethodPost, "/api/v1/auth/register", "", echo.Map{"email": email, "password": "secret1", "role": role})
	require.Equal(t, http.StatusCreated, code)
	code, env := a.do(t, http.MethodPost, "/api/v1/auth/login", "", echo.Map{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	return tok.AccessToken
}

func arrival(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(model.DateLayout)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "admin@hotel.test", "admin")
	client := a.register(t, "guest@mail.test", "")

	code, env := a.do(t, http.MethodPost, "/api/v1/rooms", admin, echo.Map{
		"room_type": "Deluxe", "room_code": "room_type_1", "total_rooms": 5, "available_rooms": 5, "price": 100,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var room model.Room
	require.NoError(t, json.Unmarshal(env.Data, &room))

	code, env = a.do(t, http.MethodPost, "/api/v1/bookings", client, echo.Map{
		"room_id": room.ID, "arrival_date": arrival(10), "no_of_adults": 2, "no_of_week_nights": 2, "type_of_meal_plan": 1,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var b model.Booking
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, 10, b.LeadTime)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	_, env = a.do(t, http.MethodGet, "/api/v1/rooms/1", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.Equal(t, 4, room.AvailableRooms)

	code, env = a.do(t, http.MethodPost, "/api/v1/bookings/1/cancel", client, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = a.do(t, http.MethodPost, "/api/v1/bookings/1/cancel", client, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
	assert.Equal(t, "null", string(env.Data))

	_, env = a.do(t, http.MethodGet, "/api/v1/rooms/1", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.Equal(t, 5, room.AvailableRooms)

	code, env = a.do(t, http.MethodGet, "/api/v1/bookings/history", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var hist []model.History
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	assert.Len(t, hist, 1)

	a.mu.Lock()
	assert.GreaterOrEqual(t, a.purges, 3) // room create, booking create, cancel
	a.mu.Unlock()
}

func TestBookingErrorsMapToStatus(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "admin@hotel.test", "admin")
	client := a.register(t, "guest@mail.test", "client")
	other := a.register(t, "other@mail.test", "client")

	code, _ := a.do(t, http.MethodPost, "/api/v1/rooms", admin, echo.Map{
		"room_type": "Single", "room_code": "room_type_2", "total_rooms": 1, "available_rooms": 1, "price": 50,
	})
	require.Equal(t, http.StatusCreated, code)

	body := func(days int) echo.Map {
		return echo.Map{"room_id": 1, "arrival_date": arrival(days), "no_of_adults": 1}
	}

	code, _ = a.do(t, http.MethodPost, "/api/v1/bookings", client, body(0))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(t, http.MethodPost, "/api/v1/bookings", client, echo.Map{"room_id": 42, "arrival_date": arrival(3), "no_of_adults": 1})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(t, http.MethodPost, "/api/v1/bookings", admin, body(3))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(t, http.MethodPost, "/api/v1/bookings", client, body(3))
	require.Equal(t, http.StatusCreated, code)

	code, env := a.do(t, http.MethodPost, "/api/v1/bookings", other, body(3))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Room is not available", env.Message)

	code, _ = a.do(t, http.MethodGet, "/api/v1/bookings/1", other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(t, http.MethodPost, "/api/v1/bookings/1/cancel", other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(t, http.MethodGet, "/api/v1/bookings/99", client, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(t, http.MethodDelete, "/api/v1/rooms/1", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(t, http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoomValidation(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "admin@hotel.test", "admin")
	client := a.register(t, "guest@mail.test", "client")

	room := echo.Map{"room_type": "Suite", "room_code": "room_type_0", "total_rooms": 2, "available_rooms": 1, "price": 10}
	code, env := a.do(t, http.MethodPost, "/api/v1/rooms", admin, room)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "room_code")

	room["room_code"] = "room_type_3"
	room["available_rooms"] = 3
	code, env = a.do(t, http.MethodPost, "/api/v1/rooms", admin, room)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "available_rooms cannot exceed total_rooms", env.Message)

	room["available_rooms"] = 2
	code, _ = a.do(t, http.MethodPost, "/api/v1/rooms", client, room)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(t, http.MethodPost, "/api/v1/rooms", admin, room)
	assert.Equal(t, http.StatusCreated, code)
	code, env = a.do(t, http.MethodPost, "/api/v1/rooms", admin, room)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Room code already exists", env.Message)

	code, _ = a.do(t, http.MethodGet, "/api/v1/rooms?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = a.do(t, http.MethodGet, "/api/v1/rooms?available_only=true&room_type=Suite", "", nil)
	assert.Equal(t, http.StatusOK, code)
	var rooms []model.Room
	require.NoError(t, json.Unmarshal(env.Data, &rooms))
	assert.Len(t, rooms, 1)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)

	code, env := a.do(t, http.MethodPost, "/api/v1/auth/hotel-register", "", echo.Map{
		"hotel_name": "Sea View", "contact_person": "Sam Lee", "email": "desk@seaview.test",
		"password": "harbour1", "phone": "0123456789", "city": "Porto",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var reg struct {
		Creds struct {
			UserID string `json:"user_id"`
		} `json:"admin_credentials"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Regexp(t, `^A[a-z0-9]{7}$`, reg.Creds.UserID)

	code, _ = a.do(t, http.MethodPost, "/api/v1/auth/admin-login", "", echo.Map{"user_id": reg.Creds.UserID, "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = a.do(t, http.MethodPost, "/api/v1/auth/admin-login", "", echo.Map{"user_id": reg.Creds.UserID, "password": "harbour1"})
	require.Equal(t, http.StatusOK, code)
	var tok struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tok))
	assert.Equal(t, "bearer", tok.TokenType)

	code, env = a.do(t, http.MethodGet, "/api/v1/auth/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Sea View")

	code, _ = a.do(t, http.MethodPost, "/api/v1/auth/register", "", echo.Map{"email": "desk@seaview.test", "password": "another1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = a.do(t, http.MethodPost, "/api/v1/auth/refresh", "", echo.Map{"refresh_token": tok.RefreshToken})
	require.Equal(t, http.StatusOK, code)
	code, _ = a.do(t, http.MethodPost, "/api/v1/auth/refresh", "", echo.Map{"refresh_token": tok.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, code, "rotated refresh token must not be reusable")

	code, _ = a.do(t, http.MethodPost, "/api/v1/auth/logout", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = a.do(t, http.MethodGet, "/api/v1/auth/me", tok.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	a := newApp(t)
	code, env := a.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)

	code, env = a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, env.Success)
}
