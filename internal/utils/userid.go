package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const adminIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewUserID returns the role prefix followed by the first eight hex
// characters of a random UUID, e.g. "C3f9a01bc".
func NewUserID(role model.Role) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return role.IDPrefix() + hex[:8]
}

// NewHotelAdminID returns "A" followed by seven random lowercase
// alphanumerics.  Hotel admins log in with this id instead of an email.
func NewHotelAdminID() (string, error) {
	var sb strings.Builder
	sb.WriteString(model.RoleAdmin.IDPrefix())
	base := big.NewInt(int64(len(adminIDAlphabet)))
	for i := 0; i < 7; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		sb.WriteByte(adminIDAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
