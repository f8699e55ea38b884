// Package backendtest provides a scriptable backend.Client for tests.
package backendtest

import (
	"context"
	"sync"

	"staff-dashboard/internal/backend"
)

// Calls counts the procedures a Fake has served.
type Calls struct {
	StaffLogin      int
	ValidateSession int
	LogoutSession   int
}

// Total is the number of remote calls of any kind.
func (c Calls) Total() int {
	return c.StaffLogin + c.ValidateSession + c.LogoutSession
}

// Fake is a backend.Client driven by per-procedure funcs. A nil func answers like an unprovisioned
// backend (backend.ErrFunctionNotFound). Safe for concurrent use.
type Fake struct {
	LoginFunc    func(ctx context.Context, phone, pin string) (*backend.LoginResponse, error)
	ValidateFunc func(ctx context.Context, token string) (*backend.ValidateResponse, error)
	LogoutFunc   func(ctx context.Context, token string) error

	mu           sync.Mutex
	calls        Calls
	logoutTokens []string
}

var _ backend.Client = (*Fake)(nil)

func (f *Fake) StaffLogin(ctx context.Context, phone, pin string) (*backend.LoginResponse, error) {
	f.mu.Lock()
	f.calls.StaffLogin++
	fn := f.LoginFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, backend.ErrFunctionNotFound
	}
	return fn(ctx, phone, pin)
}

func (f *Fake) ValidateSession(ctx context.Context, token string) (*backend.ValidateResponse, error) {
	f.mu.Lock()
	f.calls.ValidateSession++
	fn := f.ValidateFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, backend.ErrFunctionNotFound
	}
	return fn(ctx, token)
}

func (f *Fake) LogoutSession(ctx context.Context, token string) error {
	f.mu.Lock()
	f.calls.LogoutSession++
	f.logoutTokens = append(f.logoutTokens, token)
	fn := f.LogoutFunc
	f.mu.Unlock()
	if fn == nil {
		return backend.ErrFunctionNotFound
	}
	return fn(ctx, token)
}

// Calls returns a snapshot of the call counters.
func (f *Fake) Calls() Calls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LogoutTokens returns the tokens passed to LogoutSession, in order.
func (f *Fake) LogoutTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.logoutTokens...)
}
