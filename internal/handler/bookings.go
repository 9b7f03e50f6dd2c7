package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/hotel-reservation/internal/middleware"
    "github.com/iliyamo/hotel-reservation/internal/model"
    "github.com/iliyamo/hotel-reservation/internal/repository"
    "github.com/iliyamo/hotel-reservation/internal/service"
)

// BookingHandler exposes the booking lifecycle over HTTP.  All routes sit
// behind JWTAuth; ownership and role rules live in the service.
type BookingHandler struct {
    Svc   *service.BookingService
    Purge PurgeFunc
    Log   *zap.Logger
}

func NewBookingHandler(svc *service.BookingService, purge PurgeFunc, log *zap.Logger) *BookingHandler {
    return &BookingHandler{Svc: svc, Purge: purge, Log: log}
}

type createBookingReq struct {
    RoomID              uint64     `json:"room_id" validate:"gt=0"`
    ArrivalDate         model.Date `json:"arrival_date"`
    NoOfAdults          int        `json:"no_of_adults" validate:"gt=0"`
    NoOfChildren        int        `json:"no_of_children" validate:"gte=0"`
    NoOfWeekNights      int        `json:"no_of_week_nights" validate:"gte=0"`
    NoOfWeekendNights   int        `json:"no_of_weekend_nights" validate:"gte=0"`
    TypeOfMealPlan      int        `json:"type_of_meal_plan" validate:"gte=0,lte=2"`
    NoOfSpecialRequests int        `json:"no_of_special_requests" validate:"gte=0"`
}

type updateBookingReq struct {
    CancellationPrediction *float64 `json:"cancellation_prediction" validate:"omitempty,gte=0,lte=1"`
    Status                 *string  `json:"status" validate:"omitempty,oneof=confirmed canceled"`
}

type predictReq struct {
    BookingID uint64 `json:"booking_id" validate:"gt=0"`
}

func identity(c echo.Context) (model.Identity, error) {
    id, found := middleware.IdentityFrom(c)
    if !found {
        return model.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
    }
    return id, nil
}

// availabilityChanged drops cached room listings; create and cancel move
// available_rooms.
func (h *BookingHandler) availabilityChanged(c echo.Context) {
    if h.Purge == nil {
        return
    }
    if err := h.Purge(c.Request().Context()); err != nil {
        h.Log.Warn("room cache purge failed", zap.Error(err))
    }
}

// Create: POST /bookings (client)
func (h *BookingHandler) Create(c echo.Context) error {
    who, err := identity(c)
    if err != nil {
        return err
    }
    var req createBookingReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    if req.ArrivalDate.IsZero() {
        return badRequest("arrival_date is required")
    }
    b, err := h.Svc.Create(c.Request().Context(), who, service.CreateBookingInput{
        RoomID:              req.RoomID,
        ArrivalDate:         req.ArrivalDate,
        NoOfAdults:          req.NoOfAdults,
        NoOfChildren:        req.NoOfChildren,
        NoOfWeekNights:      req.NoOfWeekNights,
        NoOfWeekendNights:   req.NoOfWeekendNights,
        TypeOfMealPlan:      req.TypeOfMealPlan,
        NoOfSpecialRequests: req.NoOfSpecialRequests,
    })
    if err != nil {
        return err
    }
    h.availabilityChanged(c)
    return ok(c, http.StatusCreated, "Booking created successfully", b)
}

// List: GET /bookings?skip=&limit=&status=&user_id=
func (h *BookingHandler) List(c echo.Context) error {
    who, err := identity(c)
    if err != nil {
        return err
    }
    skip, limit, err := page(c)
    if err != nil {
        return err
    }
    var status model.BookingStatus
    if raw := c.QueryParam("status"); raw != "" {
        if status, err = model.ParseBookingStatus(raw); err != nil {
            return badRequest("status must be confirmed or canceled")
        }
    }
    out, err := h.Svc.List(c.Request().Context(), who, service.ListFilter{
        UserID: c.QueryParam("user_id"),
        Status: status,
        Skip:   skip,
        Limit:  limit,
    })
    if err != nil {
        return err
    }
    return ok(c, http.StatusOK, "Bookings retrieved", out)
}

func (h *BookingHandler) Get(c echo.Context) error {
    who, err := identity(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    b, err := h.Svc.Get(c.Request().Context(), who, id)
    if err != nil {
        return err
    }
    return ok(c, http.StatusOK, "Booking retrieved", b)
}

// Update: PUT /bookings/:id (owner or admin)
func (h *BookingHandler) Update(c echo.Context) error {
    who, err := identity(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req updateBookingReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    in := service.UpdateBookingInput{CancellationPrediction: req.CancellationPrediction}
    if req.Status != nil {
        st, err := model.ParseBookingStatus(*req.Status)
        if err != nil {
            return badRequest("status must be confirmed or canceled")
        }
        in.Status = &st
    }
    b, err := h.Svc.Update(c.Request().Context(), who, id, in)
    if err != nil {
        return err
    }
    if in.Status != nil && *in.Status == model.BookingCanceled {
        h.availabilityChanged(c)
    }
    return ok(c, http.StatusOK, "Booking updated successfully", b)
}

// Cancel: POST /bookings/:id/cancel (owner)
func (h *BookingHandler) Cancel(c echo.Context) error {
    who, err := identity(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    b, err := h.Svc.Cancel(c.Request().Context(), who, id)
    if err != nil {
        return err
    }
    h.availabilityChanged(c)
    return ok(c, http.StatusOK, "Booking canceled successfully", b)
}

// Predict: POST /bookings/predict-cancellation (admin)
func (h *BookingHandler) Predict(c echo.Context) error {
    who, err := identity(c)
    if err != nil {
        return err
    }
    var req predictReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    p, err := h.Svc.PredictCancellation(c.Request().Context(), who, req.BookingID)
    if err != nil {
        return err
    }
    return ok(c, http.StatusOK, "Cancellation prediction completed", p)
}

// History: GET /bookings/history?user_id=&skip=&limit= (admin)
func (h *BookingHandler) History(c echo.Context) error {
    who, err := identity(c)
    if err != nil {
        return err
    }
    skip, limit, err := page(c)
    if err != nil {
        return err
    }
    out, err := h.Svc.History(c.Request().Context(), who, repository.HistoryFilter{
        UserID: c.QueryParam("user_id"),
        Skip:   skip,
        Limit:  limit,
    })
    if err != nil {
        return err
    }
    return ok(c, http.StatusOK, "Cancellation history retrieved", out)
}
