package security

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt work factor used for stored passwords
const DefaultHashCost = 12

// Hasher produces and checks salted bcrypt password digests.
// Both operations are deliberately slow; never call them while holding a lock.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. A cost outside bcrypt's
// accepted range falls back to DefaultHashCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a bcrypt digest embedding its salt and cost
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// HashToken returns the hex sha256 of a token, for storing a reference to an issued
// token without storing the token itself
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
