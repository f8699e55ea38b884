package security

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// TokenGenerator mints unique token suffixes.
type TokenGenerator interface {
	NewToken() string
}

// UUIDGenerator returns random (v4) UUIDs.
type UUIDGenerator struct{}

// NewToken returns a new random UUID string.
func (UUIDGenerator) NewToken() string {
	return uuid.NewString()
}

// CounterGenerator returns a monotonically increasing decimal sequence starting at 1.
// Deterministic; meant for tests and reproducible demos.
type CounterGenerator struct {
	n atomic.Uint64
}

// NewToken returns the next value of the sequence.
func (g *CounterGenerator) NewToken() string {
	return strconv.FormatUint(g.n.Add(1), 10)
}
