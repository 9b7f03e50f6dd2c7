package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/hotel-reservation/internal/model"
    "github.com/iliyamo/hotel-reservation/internal/repository"
)

// RoomStore is the room persistence used by RoomHandler.
type RoomStore interface {
    List(ctx context.Context, f repository.RoomFilter) ([]model.Room, error)
    GetByID(ctx context.Context, id uint64) (*model.Room, error)
    Create(ctx context.Context, rm *model.Room) error
    Update(ctx context.Context, rm *model.Room) error
    Delete(ctx context.Context, id uint64) error
}

// PurgeFunc drops cached room listings after inventory changes.
type PurgeFunc func(ctx context.Context) error

// RoomHandler serves room inventory: public reads, admin writes.
type RoomHandler struct {
    Rooms RoomStore
    Purge PurgeFunc
    Log   *zap.Logger
}

func NewRoomHandler(rooms RoomStore, purge PurgeFunc, log *zap.Logger) *RoomHandler {
    return &RoomHandler{Rooms: rooms, Purge: purge, Log: log}
}

type roomReq struct {
    RoomType       string  `json:"room_type" validate:"required,max=100"`
    RoomCode       string  `json:"room_code" validate:"required,roomcode"`
    TotalRooms     int     `json:"total_rooms" validate:"gt=0"`
    AvailableRooms int     `json:"available_rooms" validate:"gte=0,ltefield=TotalRooms"`
    Price          float64 `json:"price" validate:"gt=0"`
}

func (r roomReq) toRoom(id uint64) *model.Room {
    return &model.Room{
        ID:             id,
        RoomType:       r.RoomType,
        RoomCode:       r.RoomCode,
        TotalRooms:     r.TotalRooms,
        AvailableRooms: r.AvailableRooms,
        Price:          r.Price,
    }
}

// page reads skip (>= 0) and limit (1..1000, default 100) from the query.
func page(c echo.Context) (skip, limit int, err error) {
    limit = 100
    if err := echo.QueryParamsBinder(c).Int("skip", &skip).Int("limit", &limit).BindError(); err != nil {
        return 0, 0, badRequest("skip and limit must be integers")
    }
    if skip < 0 {
        return 0, 0, badRequest("skip must be at least 0")
    }
    if limit < 1 || limit > 1000 {
        return 0, 0, badRequest("limit must be between 1 and 1000")
    }
    return skip, limit, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, badRequest("invalid " + name)
    }
    return id, nil
}

// roomError maps room repository errors to HTTP errors.
func roomError(err error) error {
    switch {
    case errors.Is(err, repository.ErrRoomNotFound):
        return echo.NewHTTPError(http.StatusNotFound, "Room not found")
    case errors.Is(err, repository.ErrRoomCodeExists):
        return badRequest("Room code already exists")
    case errors.Is(err, repository.ErrConflict):
        return badRequest("Cannot delete room with active bookings")
    }
    return err
}

func (h *RoomHandler) purge(c echo.Context) {
    if h.Purge == nil {
        return
    }
    if err := h.Purge(c.Request().Context()); err != nil {
        h.Log.Warn("room cache purge failed", zap.Error(err))
    }
}

// List: GET /rooms?skip=&limit=&room_type=&available_only=
func (h *RoomHandler) List(c echo.Context) error {
    skip, limit, err := page(c)
    if err != nil {
        return err
    }
    var availableOnly bool
    if err := echo.QueryParamsBinder(c).Bool("available_only", &availableOnly).BindError(); err != nil {
        return badRequest("available_only must be a boolean")
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    rooms, err := h.Rooms.List(ctx, repository.RoomFilter{
        RoomType:      c.QueryParam("room_type"),
        AvailableOnly: availableOnly,
        Skip:          skip,
        Limit:         limit,
    })
    if err != nil {
        return err
    }
    return ok(c, http.StatusOK, "Rooms retrieved", rooms)
}

func (h *RoomHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    rm, err := h.Rooms.GetByID(ctx, id)
    if err != nil {
        return roomError(err)
    }
    return ok(c, http.StatusOK, "Room retrieved", rm)
}

func (h *RoomHandler) Create(c echo.Context) error {
    var req roomReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    rm := req.toRoom(0)
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Rooms.Create(ctx, rm); err != nil {
        return roomError(err)
    }
    h.purge(c)
    h.Log.Info("room created", zap.Uint64("room_id", rm.ID), zap.String("room_code", rm.RoomCode))
    return ok(c, http.StatusCreated, "Room created successfully", rm)
}

// Update replaces a room's fields, including a direct reset of availability.
func (h *RoomHandler) Update(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req roomReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    rm := req.toRoom(id)
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Rooms.Update(ctx, rm); err != nil {
        return roomError(err)
    }
    h.purge(c)
    h.Log.Info("room updated", zap.Uint64("room_id", rm.ID), zap.Int("available_rooms", rm.AvailableRooms))
    return ok(c, http.StatusOK, "Room updated successfully", rm)
}

func (h *RoomHandler) Delete(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Rooms.Delete(ctx, id); err != nil {
        return roomError(err)
    }
    h.purge(c)
    h.Log.Info("room deleted", zap.Uint64("room_id", id))
    return ok(c, http.StatusOK, "Room deleted successfully", nil)
}
