package utils // package utils provides helpers for tokens, hashing and id generation

import (
    "crypto/rand"   // secure random bytes for refresh tokens
    "crypto/sha256" // SHA-256 hashing for refresh tokens
    "encoding/hex"  // hex encoding of random bytes and digests
    "errors"        // sentinel for malformed claims
    "fmt"           // wrapping parse errors
    "time"          // expirations

    "github.com/golang-jwt/jwt/v5" // HS256 signing and verification
    "github.com/google/uuid"       // jti claim

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// AccessToken is a signed JWT plus its expiry and id.  The id (jti) lets
// logout deny a token before it expires.
type AccessToken struct {
    Token string    // serialized JWT
    ID    string    // jti claim
    Exp   time.Time // UTC expiration
}

// RefreshToken is a long-lived opaque token.  Only its SHA-256 hash is
// stored server side.
type RefreshToken struct {
    Raw string    // returned to the client
    Exp time.Time // UTC expiration
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

// ErrBadClaims is returned for a validly signed token whose subject or
// role cannot be used.
var ErrBadClaims = errors.New("invalid token claims")

// NewAccessToken signs an HS256 JWT carrying sub (user id), role, jti,
// iat and exp.
func NewAccessToken(secret string, userID string, role model.Role, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    jti := uuid.NewString()
    claims := AccessClaims{
        Role: string(role),
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   userID,
            ID:        jti,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, ID: jti, Exp: exp}, nil
}

// ParseAccessToken verifies signature, algorithm and expiry, and returns
// the caller identity along with the raw claims.
func ParseAccessToken(secret, raw string) (model.Identity, *AccessClaims, error) {
    claims := &AccessClaims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
    if err != nil {
        return model.Identity{}, nil, fmt.Errorf("parse token: %w", err)
    }
    if !tok.Valid || claims.Subject == "" {
        return model.Identity{}, nil, ErrBadClaims
    }
    role, err := model.ParseRole(claims.Role)
    if err != nil {
        return model.Identity{}, nil, ErrBadClaims
    }
    return model.Identity{UserID: claims.Subject, Role: role}, claims, nil
}

// NewRefreshToken returns 48 random bytes hex-encoded, valid for ttlDays.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw refresh token.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
