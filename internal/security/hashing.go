package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MaxPINBytes is the longest PIN bcrypt reads in full.
const MaxPINBytes = 72

// ErrPINNotHashable is returned by Hash for a PIN that bcrypt cannot compare exactly.
var ErrPINNotHashable = errors.New("security: pin is longer than 72 bytes or contains NUL")

// Hasher hashes and verifies PINs using bcrypt. Callers must not log or persist plaintext PINs.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's accepted range.
// A non-positive cost selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// bcrypt truncates keys at 72 bytes and repeats key+NUL to fill its key schedule, so two distinct
// strings can share a hash once either is over the limit or holds a NUL.
func hashable(pin string) bool {
	return len(pin) <= MaxPINBytes && strings.IndexByte(pin, 0) < 0
}

// Hash returns the bcrypt hash of pin.
func (h *Hasher) Hash(pin string) (string, error) {
	if !hashable(pin) {
		return "", ErrPINNotHashable
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pin), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Match reports whether pin is exactly the value hashed into hash.
func (h *Hasher) Match(hash, pin string) bool {
	if hash == "" || !hashable(pin) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
