package middleware // middleware provides shared request processing for handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// RequireRole aborts with 403 unless the authenticated caller holds one of
// roles.  It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityFrom(c)
            if !ok {
                return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
            }
            if !allowed[id.Role] {
                return echo.NewHTTPError(http.StatusForbidden, roleMessage(roles))
            }
            return next(c)
        }
    }
}

func roleMessage(roles []model.Role) string {
    if len(roles) == 1 {
        switch roles[0] {
        case model.RoleAdmin:
            return "Admin access required"
        case model.RoleClient:
            return "Client access required"
        }
    }
    return "Forbidden"
}
