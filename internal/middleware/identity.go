package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// IdentityFrom returns the caller identity stored by JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
    id, ok := c.Get(CtxIdentity).(model.Identity)
    return id, ok && id.UserID != ""
}

// currentUserID returns the authenticated user id or "anon".
func currentUserID(c echo.Context) string {
    if id, ok := IdentityFrom(c); ok {
        return id.UserID
    }
    return "anon"
}
