package model

import (
    "fmt"
    "strings"
    "time"
)

// Role is the closed set of account roles.  Every authorization check
// switches over these values; an unknown string never becomes a Role.
type Role string

const (
    RoleClient Role = "client" // guests that book rooms
    RoleAdmin  Role = "admin"  // hotel accounts that manage inventory
)

// ParseRole converts a raw role string (from a JWT claim or a request
// body) into a Role.  Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
    switch Role(strings.ToLower(strings.TrimSpace(s))) {
    case RoleClient:
        return RoleClient, nil
    case RoleAdmin:
        return RoleAdmin, nil
    }
    return "", fmt.Errorf("unknown role %q", s)
}

// IDPrefix returns the letter that starts every user id of this role.
func (r Role) IDPrefix() string {
    switch r {
    case RoleAdmin:
        return "A"
    case RoleClient:
        return "C"
    }
    return "U"
}

// Identity is the already-authenticated caller attached to a request.
type Identity struct {
    UserID string
    Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// User represents an account as stored in the `users` table.  Hotel
// accounts are admins carrying the optional hotel profile columns.
//
// Fields:
//  ID           – string id, "C" or "A" followed by random characters.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash.
//  Role         – client or admin.
//  Hotel        – hotel profile, nil for plain users.
type User struct {
    ID           string    // users.user_id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         Role      // users.role
    FullName     *string   // users.full_name
    Phone        *string   // users.phone
    City         *string   // users.city
    Hotel        *Hotel    // users.hotel_* columns
    CreatedAt    time.Time // users.created_at
}

// Hotel is the profile attached to an admin created via hotel registration.
type Hotel struct {
    Name          string  // users.hotel_name
    Address       *string // users.hotel_address
    Website       *string // users.hotel_website
    Description   *string // users.hotel_description
    Phone         *string // users.hotel_phone
    ContactPerson *string // users.hotel_contact_person
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    string     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
