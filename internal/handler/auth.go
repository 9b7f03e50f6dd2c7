package handler

import (
    "context"  // bounded DB calls
    "errors"   // sentinel comparisons
    "net/http" // status codes
    "strings"  // input normalisation
    "time"     // timeouts and token expiry

    "github.com/labstack/echo/v4" // HTTP routing
    "go.uber.org/zap"             // structured logging

    "github.com/iliyamo/hotel-reservation/internal/config"
    "github.com/iliyamo/hotel-reservation/internal/middleware"
    "github.com/iliyamo/hotel-reservation/internal/model"
    "github.com/iliyamo/hotel-reservation/internal/repository"
    "github.com/iliyamo/hotel-reservation/internal/utils"
)

// UserStore is the subset of repository.UserRepo the auth endpoints use.
type UserStore interface {
    Create(ctx context.Context, u *model.User) error
    GetByEmail(ctx context.Context, email string) (*model.User, error)
    GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenStore is the subset of repository.TokenRepo the auth endpoints use.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    Deny   *middleware.Denylist
    Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, deny *middleware.Denylist, log *zap.Logger) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Deny: deny, Log: log}
}

// ----- DTOs -----

type hotelRegisterReq struct {
    HotelName     string  `json:"hotel_name" validate:"required,max=200"`
    ContactPerson string  `json:"contact_person" validate:"required,max=100"`
    Email         string  `json:"email" validate:"required,email"`
    Password      string  `json:"password" validate:"required,min=6,max=100"`
    Phone         string  `json:"phone" validate:"required,min=10,max=15"`
    City          string  `json:"city" validate:"required,max=100"`
    Address       *string `json:"address" validate:"omitempty,max=500"`
    Website       *string `json:"website" validate:"omitempty,max=200"`
    Description   *string `json:"description" validate:"omitempty,max=1000"`
}

type registerReq struct {
    Email    string  `json:"email" validate:"required,email"`
    Password string  `json:"password" validate:"required,min=6,max=100"`
    FullName *string `json:"full_name" validate:"omitempty,max=100"`
    Phone    *string `json:"phone" validate:"omitempty,max=15"`
    City     *string `json:"city" validate:"omitempty,max=100"`
    Role     string  `json:"role" validate:"omitempty,oneof=client admin"`
}

type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

type adminLoginReq struct {
    UserID   string `json:"user_id" validate:"required,min=6,max=20"`
    Password string `json:"password" validate:"required,min=6"`
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token" validate:"required"`
}

type userResp struct {
    UserID    string       `json:"user_id"`
    Email     string       `json:"email"`
    Role      model.Role   `json:"role"`
    FullName  *string      `json:"full_name"`
    Phone     *string      `json:"phone"`
    City      *string      `json:"city"`
    Hotel     *model.Hotel `json:"hotel,omitempty"`
    CreatedAt time.Time    `json:"created_at"`
}

type tokenResp struct {
    AccessToken      string    `json:"access_token"`
    TokenType        string    `json:"token_type"`
    ExpiresIn        int       `json:"expires_in"` // seconds
    RefreshToken     string    `json:"refresh_token"`
    RefreshExpiresAt time.Time `json:"refresh_expires_at"`
    User             userResp  `json:"user"`
}

func toUserResp(u *model.User) userResp {
    return userResp{
        UserID:    u.ID,
        Email:     u.Email,
        Role:      u.Role,
        FullName:  u.FullName,
        Phone:     u.Phone,
        City:      u.City,
        Hotel:     u.Hotel,
        CreatedAt: u.CreatedAt,
    }
}

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// HotelRegister creates an admin account carrying a hotel profile.  The
// generated user_id is the admin's login for /auth/admin-login.
func (h *AuthHandler) HotelRegister(c echo.Context) error {
    var req hotelRegisterReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return err
    }
    id, err := utils.NewHotelAdminID()
    if err != nil {
        return err
    }
    contact := strings.TrimSpace(req.ContactPerson)
    phone := strings.TrimSpace(req.Phone)
    city := strings.TrimSpace(req.City)
    u := &model.User{
        ID:           id,
        Email:        req.Email,
        PasswordHash: hash,
        Role:         model.RoleAdmin,
        FullName:     &contact,
        Phone:        &phone,
        City:         &city,
        Hotel: &model.Hotel{
            Name:          strings.TrimSpace(req.HotelName),
            Address:       req.Address,
            Website:       req.Website,
            Description:   req.Description,
            Phone:         &phone,
            ContactPerson: &contact,
        },
        CreatedAt: time.Now().UTC(),
    }

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Users.Create(ctx, u); err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return badRequest("Email already registered")
        }
        return err
    }
    h.Log.Info("hotel registered", zap.String("user_id", u.ID), zap.String("hotel", u.Hotel.Name))

    return ok(c, http.StatusCreated, "Hotel registered successfully", echo.Map{
        "user":              toUserResp(u),
        "admin_credentials": echo.Map{
            "user_id": u.ID,
            "note":    "Use this user_id and your password at /api/v1/auth/admin-login",
        },
    })
}

// Register creates a client (or admin) account.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    role := model.RoleClient
    if req.Role != "" {
        r, err := model.ParseRole(req.Role)
        if err != nil {
            return badRequest("role must be client or admin")
        }
        role = r
    }
    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return err
    }
    u := &model.User{
        ID:           utils.NewUserID(role),
        Email:        req.Email,
        PasswordHash: hash,
        Role:         role,
        FullName:     req.FullName,
        Phone:        req.Phone,
        City:         req.City,
        CreatedAt:    time.Now().UTC(),
    }

    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Users.Create(ctx, u); err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return badRequest("Email already registered")
        }
        return err
    }
    h.Log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
    return ok(c, http.StatusCreated, "User registered successfully", toUserResp(u))
}

// Login verifies email + password and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
        }
        return err
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
    }
    return h.issue(ctx, c, u, "Login successful")
}

// AdminLogin verifies user_id + password for admin accounts.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
    var req adminLoginReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    ctx, cancel := dbCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, strings.TrimSpace(req.UserID))
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return echo.NewHTTPError(http.StatusUnauthorized, "Invalid admin credentials")
        }
        return err
    }
    if u.Role != model.RoleAdmin || !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return echo.NewHTTPError(http.StatusUnauthorized, "Invalid admin credentials")
    }
    return h.issue(ctx, c, u, "Admin login successful")
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := bindAndValidate(c, &req); err != nil {
        return err
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := dbCtx(c)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err == nil {
        err = h.Tokens.RevokeByHash(ctx, hash)
    }
    if err != nil {
        if errors.Is(err, repository.ErrInvalidRefresh) {
            return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
        }
        return err
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
        }
        return err
    }
    return h.issue(ctx, c, u, "Token refreshed")
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    id, _ := middleware.IdentityFrom(c)
    ctx, cancel := dbCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, id.UserID)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return echo.NewHTTPError(http.StatusNotFound, "User not found")
        }
        return err
    }
    return ok(c, http.StatusOK, "User profile", toUserResp(u))
}

// Logout denies the presented access token until it expires and revokes
// every refresh token of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
    id, _ := middleware.IdentityFrom(c)
    if jti, isStr := c.Get(middleware.CtxTokenID).(string); isStr && h.Deny != nil {
        exp, _ := c.Get(middleware.CtxTokenExp).(time.Time)
        h.Deny.Revoke(jti, exp)
    }
    ctx, cancel := dbCtx(c)
    defer cancel()
    if err := h.Tokens.RevokeAllForUser(ctx, id.UserID); err != nil {
        return err
    }
    h.Log.Info("user logged out", zap.String("user_id", id.UserID))
    return ok(c, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) issue(ctx context.Context, c echo.Context, u *model.User, msg string) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return err
    }
    return ok(c, http.StatusOK, msg, tokenResp{
        AccessToken:      access.Token,
        TokenType:        "bearer",
        ExpiresIn:        h.Cfg.AccessTTLMin * 60,
        RefreshToken:     refresh.Raw, // raw back to client, hash stored
        RefreshExpiresAt: refresh.Exp,
        User:             toUserResp(u),
    })
}
