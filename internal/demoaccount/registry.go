// Package demoaccount provides the static phone/PIN table used to sign in without a provisioned backend.
package demoaccount

import (
	"fmt"
	"sort"
	"strings"

	profiledomain "staff-dashboard/internal/profile/domain"
	"staff-dashboard/internal/security"
)

// Registry looks up demo accounts by phone. Implementations are read-only after construction.
type Registry interface {
	// Lookup returns the demo account for phone, or ok false when phone is not a demo account.
	Lookup(phone string) (account *Account, ok bool)
}

// Account is a demo login: the PIN is held only as a bcrypt hash.
type Account struct {
	PINHash string
	Profile profiledomain.Profile

	hasher *security.Hasher
}

// MatchPIN reports whether pin is exactly this account's PIN.
func (a *Account) MatchPIN(pin string) bool {
	if a == nil || a.hasher == nil {
		return false
	}
	return a.hasher.Match(a.PINHash, pin)
}

// StaticRegistry is an immutable in-memory Registry.
type StaticRegistry struct {
	byPhone map[string]*Account
}

// NewStaticRegistry hashes each seed's PIN and indexes the seeds by phone.
// Returns an error for an invalid seed or a duplicate phone.
func NewStaticRegistry(hasher *security.Hasher, seeds []Seed) (*StaticRegistry, error) {
	if hasher == nil {
		return nil, fmt.Errorf("demoaccount: hasher is required")
	}
	r := &StaticRegistry{byPhone: make(map[string]*Account, len(seeds))}
	for i, s := range seeds {
		p := s.profile()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("demoaccount: seed %d (%s): %w", i, s.Phone, err)
		}
		if strings.TrimSpace(s.PIN) == "" {
			return nil, fmt.Errorf("demoaccount: seed %d (%s): pin is required", i, s.Phone)
		}
		if _, dup := r.byPhone[p.Phone]; dup {
			return nil, fmt.Errorf("demoaccount: duplicate phone %s", p.Phone)
		}
		hash, err := hasher.Hash(s.PIN)
		if err != nil {
			return nil, fmt.Errorf("demoaccount: hash pin for %s: %w", p.Phone, err)
		}
		r.byPhone[p.Phone] = &Account{PINHash: hash, Profile: p, hasher: hasher}
	}
	return r, nil
}

// Lookup returns a copy of the account for phone.
func (r *StaticRegistry) Lookup(phone string) (*Account, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.byPhone[phone]
	if !ok {
		return nil, false
	}
	c := *a
	return &c, true
}

// Profiles returns the profiles of every registered account in role order, then by phone.
func (r *StaticRegistry) Profiles() []profiledomain.Profile {
	if r == nil {
		return nil
	}
	out := make([]profiledomain.Profile, 0, len(r.byPhone))
	for _, role := range profiledomain.Roles {
		var phones []string
		for phone, a := range r.byPhone {
			if a.Profile.Role == role {
				phones = append(phones, phone)
			}
		}
		sort.Strings(phones)
		for _, phone := range phones {
			out = append(out, r.byPhone[phone].Profile)
		}
	}
	return out
}

// Disabled is a Registry with no accounts, for deployments where demo sign-in must be off.
type Disabled struct{}

// Lookup always reports ok false.
func (Disabled) Lookup(string) (*Account, bool) { return nil, false }
