package middleware

import (
    "time"

    gocache "github.com/patrickmn/go-cache"
)

// Denylist remembers access token ids revoked by logout until the tokens
// would have expired anyway.  It is per process.
type Denylist struct {
    c *gocache.Cache
}

func NewDenylist() *Denylist {
    return &Denylist{c: gocache.New(30*time.Minute, 10*time.Minute)}
}

// Revoke denies jti until exp.  Already expired tokens are ignored.
func (d *Denylist) Revoke(jti string, exp time.Time) {
    if jti == "" {
        return
    }
    ttl := time.Until(exp)
    if ttl <= 0 {
        return
    }
    d.c.Set(jti, struct{}{}, ttl)
}

// Revoked reports whether jti was revoked.
func (d *Denylist) Revoked(jti string) bool {
    if jti == "" {
        return false
    }
    _, found := d.c.Get(jti)
    return found
}
