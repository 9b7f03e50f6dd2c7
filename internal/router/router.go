package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"                    // web framework
	echomw "github.com/labstack/echo/v4/middleware" // trailing slash normalisation, panic recovery
	"go.uber.org/zap"                               // structured logging

	"github.com/iliyamo/hotel-reservation/internal/handler"    // endpoint implementations
	"github.com/iliyamo/hotel-reservation/internal/middleware" // auth, roles, logging
	"github.com/iliyamo/hotel-reservation/internal/model"      // roles
)

// APIPrefix is the base path of every versioned endpoint.
const APIPrefix = "/api/v1"

// Configure installs the validator, the envelope error handler and the
// request logger.  It must run before any route is registered.
func Configure(e *echo.Echo, log *zap.Logger) {
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
}

// RegisterRoutes registers the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
}

// RegisterAuth registers /api/v1/auth.  Account creation and login sit
// behind the stricter authLimit bucket; /me and /logout need a token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwt, authLimit echo.MiddlewareFunc) {
	g := e.Group(APIPrefix + "/auth")

	open := g.Group("", authLimit)
	open.POST("/hotel-register", a.HotelRegister)
	open.POST("/register", a.Register)
	open.POST("/login", a.Login)
	open.POST("/admin-login", a.AdminLogin)
	open.POST("/refresh", a.Refresh)

	g.GET("/me", a.Me, jwt)
	g.POST("/logout", a.Logout, jwt)
}

// RegisterRooms registers /api/v1/rooms.  Reads are public and cached;
// writes require the admin role.
func RegisterRooms(e *echo.Echo, h *handler.RoomHandler, jwt, cache echo.MiddlewareFunc) {
	g := e.Group(APIPrefix + "/rooms")
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)

	admin := g.Group("", jwt, middleware.RequireRole(model.RoleAdmin))
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}

// RegisterBookings registers /api/v1/bookings.  Every route needs a token.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwt echo.MiddlewareFunc) {
	g := e.Group(APIPrefix+"/bookings", jwt)

	g.POST("", h.Create, middleware.RequireRole(model.RoleClient))
	g.GET("", h.List)
	g.GET("/history", h.History, middleware.RequireRole(model.RoleAdmin))
	g.POST("/predict-cancellation", h.Predict, middleware.RequireRole(model.RoleAdmin))
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/cancel", h.Cancel, middleware.RequireRole(model.RoleClient))
}
