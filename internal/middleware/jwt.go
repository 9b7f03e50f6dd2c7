package middleware // reusable HTTP middleware: auth, roles, logging, rate limiting, caching

import (
    "net/http" // status codes
    "strings"  // bearer prefix handling

    "github.com/labstack/echo/v4" // middleware signatures

    "github.com/iliyamo/hotel-reservation/internal/utils" // access token parsing
)

// Context keys set by JWTAuth.
const (
    CtxIdentity = "identity"  // model.Identity
    CtxUserID   = "user_id"   // string
    CtxRole     = "role"      // model.Role
    CtxTokenID  = "token_id"  // string (jti)
    CtxTokenExp = "token_exp" // time.Time
)

// JWTAuth validates a Bearer access token, rejects tokens revoked through
// logout, and stores the caller identity in the context.  Failures are
// returned as echo.HTTPError so the error handler renders the envelope.
func JWTAuth(secret string, deny *Denylist) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            id, claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
            }
            if deny != nil && deny.Revoked(claims.ID) {
                return echo.NewHTTPError(http.StatusUnauthorized, "Token has been revoked")
            }

            c.Set(CtxIdentity, id)
            c.Set(CtxUserID, id.UserID)
            c.Set(CtxRole, id.Role)
            c.Set(CtxTokenID, claims.ID)
            if claims.ExpiresAt != nil {
                c.Set(CtxTokenExp, claims.ExpiresAt.Time)
            }
            return next(c)
        }
    }
}
