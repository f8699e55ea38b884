package domain

import (
	"strings"

	profiledomain "staff-dashboard/internal/profile/domain"
)

// DemoTokenPrefix marks tokens minted locally for demo accounts. Such tokens are never sent to the backend.
const DemoTokenPrefix = "demo_"

// Session is the current client session: an opaque token and the profile it authenticates.
type Session struct {
	Token string
	User  *profiledomain.Profile
}

// IsDemoToken reports whether token was minted for a demo account.
func IsDemoToken(token string) bool {
	return strings.HasPrefix(token, DemoTokenPrefix)
}

// Authenticated reports whether both a token and a user are present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// State is the client-side session lifecycle state.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}
