package handler // HTTP handlers

import (
    "context"  // ping timeout
    "net/http" // status codes
    "time"     // timestamps

    "github.com/labstack/echo/v4" // web framework
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database connectivity.
type HealthHandler struct {
    DB      Pinger
    Version string
    Env     string
}

func NewHealthHandler(db Pinger, version, env string) *HealthHandler {
    return &HealthHandler{DB: db, Version: version, Env: env}
}

// Health returns 200 when the database answers a ping within two seconds
// and 503 otherwise.  Load balancers key off the status code.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    data := echo.Map{
        "status":      "healthy",
        "database":    "connected",
        "version":     h.Version,
        "environment": h.Env,
        "timestamp":   time.Now().UTC(),
    }
    if h.DB == nil || h.DB.PingContext(ctx) != nil {
        data["status"] = "unhealthy"
        data["database"] = "disconnected"
        return c.JSON(http.StatusServiceUnavailable, Response{Success: false, Message: "Service unhealthy", Data: data})
    }
    return ok(c, http.StatusOK, "Service healthy", data)
}

// Root describes the API.
func (h *HealthHandler) Root(c echo.Context) error {
    return ok(c, http.StatusOK, "Hotel reservation API", echo.Map{
        "version": h.Version,
        "health":  "/health",
        "api":     "/api/v1",
    })
}
