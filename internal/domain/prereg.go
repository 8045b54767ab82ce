package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// PreRegistration stages a plan choice made before the visitor has an account.
// Records are keyed by a one-way hash of the lowercased email so the table
// never needs the raw address as an identifier.
type PreRegistration struct {
	EmailHash string
	Email     string
	Plan      Plan
	Used      bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HashEmail derives the pre-registration key for an address.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
