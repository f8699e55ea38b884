// Package manager owns the client's session state and exposes it to the rest of the dashboard.
package manager

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	profiledomain "staff-dashboard/internal/profile/domain"
	sessiondomain "staff-dashboard/internal/session/domain"
	"staff-dashboard/internal/session/service"
)

// Authenticator is the subset of service.AuthService the manager drives.
type Authenticator interface {
	Login(ctx context.Context, phone, pin string) service.LoginResult
	Logout(ctx context.Context)
	RefreshSession(ctx context.Context) service.RefreshOutcome
}

// Snapshot is a point-in-time view of the session. IsAuthenticated is User != nil && Token != "".
type Snapshot struct {
	User            *profiledomain.Profile
	Token           string
	IsLoading       bool
	IsAuthenticated bool
	State           sessiondomain.State
	// Stale is set while the user is trusted from cache because the backend could not be reached.
	Stale bool
}

// Role returns the signed-in user's role, or "" when signed out.
func (s Snapshot) Role() profiledomain.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s Snapshot) clone() Snapshot {
	s.User = s.User.Clone()
	return s
}

// Manager serializes session operations and publishes the resulting state.
type Manager struct {
	auth   Authenticator
	logger *zap.Logger

	opMu    sync.Mutex
	refresh singleflight.Group
	// life is canceled by Close. Shared refreshes run on it rather than on any one caller's ctx.
	life context.Context
	stop context.CancelFunc

	mu     sync.RWMutex
	snap   Snapshot
	gen    uint64
	closed bool
	subs   map[chan Snapshot]struct{}
	loaded chan struct{}
}

// New returns a Manager in the loading state. Call RefreshSession to resolve the stored session.
func New(auth Authenticator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	life, stop := context.WithCancel(context.Background())
	return &Manager{
		auth:   auth,
		logger: logger,
		life:   life,
		stop:   stop,
		snap:   Snapshot{IsLoading: true, State: sessiondomain.StateLoading},
		subs:   make(map[chan Snapshot]struct{}),
		loaded: make(chan struct{}),
	}
}

func (m *Manager) check(op string) {
	if m == nil {
		panic(&sessiondomain.MisuseError{Op: op})
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		panic(&sessiondomain.MisuseError{Op: op})
	}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.check("Snapshot")
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.clone()
}

// Loaded is closed once the initial session resolution has finished (or the manager is closed).
func (m *Manager) Loaded() <-chan struct{} {
	m.check("Loaded")
	return m.loaded
}

// WaitLoaded blocks until loading has finished and returns the state at that point.
func (m *Manager) WaitLoaded(ctx context.Context) (Snapshot, error) {
	select {
	case <-m.Loaded():
		return m.Snapshot(), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Login signs in and, on success, publishes the authenticated state. A failed login leaves the state unchanged.
func (m *Manager) Login(ctx context.Context, phone, pin string) service.LoginResult {
	m.check("Login")
	m.opMu.Lock()
	defer m.opMu.Unlock()

	gen := m.generation()
	res := m.auth.Login(ctx, phone, pin)
	if !res.Success {
		return res
	}
	m.apply(gen, Snapshot{User: res.User, Token: res.Token})
	return res
}

// Logout signs out. The state is always unauthenticated afterwards.
func (m *Manager) Logout(ctx context.Context) {
	m.check("Logout")
	m.opMu.Lock()
	defer m.opMu.Unlock()

	gen := m.generation()
	m.auth.Logout(ctx)
	m.apply(gen, Snapshot{})
}

// RefreshSession resolves the stored session and publishes the result. Concurrent callers share a
// single in-flight refresh and all receive its result. The shared call is not tied to ctx: a caller
// whose ctx ends stops waiting and gets the current state, and the refresh still completes for the others.
func (m *Manager) RefreshSession(ctx context.Context) Snapshot {
	m.check("RefreshSession")
	ch := m.refresh.DoChan("refresh", func() (any, error) {
		m.opMu.Lock()
		defer m.opMu.Unlock()

		gen := m.generation()
		out := m.auth.RefreshSession(m.life)
		if m.life.Err() != nil {
			m.logger.Debug("session: refresh result discarded after close")
			return m.current(), nil
		}
		m.apply(gen, Snapshot{User: out.User, Token: out.Token, Stale: out.Stale})
		return m.current(), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Snapshot)
	case <-ctx.Done():
		return m.current()
	}
}

// Subscribe returns a channel that receives the latest Snapshot after each state change, and a
// function that unsubscribes. Slow readers only see the most recent state. The channel is closed
// by unsubscribe or Close.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.check("Subscribe")
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.subs[ch]; ok {
				delete(m.subs, ch)
				close(ch)
			}
		})
	}
}

// Close ends the manager's scope. Results of operations still in flight are discarded, subscriber
// channels are closed, and any further use panics. Close is idempotent.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.gen++
	m.stop()
	for ch := range m.subs {
		close(ch)
		delete(m.subs, ch)
	}
	select {
	case <-m.loaded:
	default:
		close(m.loaded)
	}
}

func (m *Manager) generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

func (m *Manager) current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.clone()
}

// apply installs next if no transition or Close happened since gen was observed.
func (m *Manager) apply(gen uint64, next Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.gen != gen {
		return
	}
	next.User = next.User.Clone()
	next.IsAuthenticated = next.User != nil && next.Token != ""
	if next.IsAuthenticated {
		next.State = sessiondomain.StateAuthenticated
	} else {
		next = Snapshot{State: sessiondomain.StateUnauthenticated}
	}
	m.snap = next
	m.gen++
	m.markLoadedLocked()
	m.publishLocked()
}

func (m *Manager) markLoadedLocked() {
	select {
	case <-m.loaded:
	default:
		close(m.loaded)
	}
}

func (m *Manager) publishLocked() {
	for ch := range m.subs {
		snap := m.snap.clone()
		select {
		case ch <- snap:
		default:
			// Drop the unread value; the reader only needs the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
