package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/hotel-reservation/internal/service"
)

// Response is the envelope every endpoint returns.  Errors carry
// Data == nil.
type Response struct {
    Success bool   `json:"success"`
    Message string `json:"message"`
    Data    any    `json:"data"`
}

func ok(c echo.Context, status int, msg string, data any) error {
    return c.JSON(status, Response{Success: true, Message: msg, Data: data})
}

// statusFor maps a service error kind to an HTTP status.  Capacity and
// conflict are client errors reported as 400.
func statusFor(k service.Kind) int {
    switch k {
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindForbidden:
        return http.StatusForbidden
    case service.KindValidation, service.KindCapacity, service.KindConflict:
        return http.StatusBadRequest
    }
    return http.StatusInternalServerError
}

// ErrorHandler renders every error returned by handlers and middleware in
// the envelope.  Internal errors are logged and their cause hidden.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        status := http.StatusInternalServerError
        msg := "Internal server error"

        var (
            se *service.Error
            he *echo.HTTPError
        )
        switch {
        case errors.As(err, &se):
            status = statusFor(se.Kind)
            if status != http.StatusInternalServerError {
                msg = se.Message
            }
        case errors.As(err, &he):
            status = he.Code
            if m, isStr := he.Message.(string); isStr {
                msg = m
            } else {
                msg = http.StatusText(he.Code)
            }
        }
        if status >= http.StatusInternalServerError {
            log.Error("request failed",
                zap.String("method", c.Request().Method),
                zap.String("path", c.Request().URL.Path),
                zap.Error(err))
        }

        body := Response{Success: false, Message: msg}
        if c.Request().Method == http.MethodHead {
            err = c.NoContent(status)
        } else {
            err = c.JSON(status, body)
        }
        if err != nil {
            log.Error("write error response", zap.Error(err))
        }
    }
}

func badRequest(msg string) error { return echo.NewHTTPError(http.StatusBadRequest, msg) }
