// Package repository persists the client's current session token and cached profile.
package repository

import (
	"context"

	profiledomain "staff-dashboard/internal/profile/domain"
)

// Store holds at most one current session. GetToken returns "" and GetCachedProfile returns nil
// when absent; errors are returned only for storage failures, not for a missing session.
type Store interface {
	GetToken(ctx context.Context) (string, error)
	GetCachedProfile(ctx context.Context) (*profiledomain.Profile, error)
	// Save replaces the current session with token and p.
	Save(ctx context.Context, token string, p *profiledomain.Profile) error
	// Clear removes the current session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// record is the persisted shape shared by the serialized stores.
type record struct {
	Token   string                 `json:"token"`
	Profile *profiledomain.Profile `json:"profile,omitempty"`
}
