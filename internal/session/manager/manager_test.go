package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"staff-dashboard/internal/backend"
	"staff-dashboard/internal/backend/backendtest"
	"staff-dashboard/internal/demoaccount"
	profiledomain "staff-dashboard/internal/profile/domain"
	"staff-dashboard/internal/security"
	sessiondomain "staff-dashboard/internal/session/domain"
	"staff-dashboard/internal/session/repository"
	"staff-dashboard/internal/session/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var staffManager = &profiledomain.Profile{ID: "u1", Phone: "9000000001", Role: profiledomain.RoleManager}

// fakeAuth records call order and can hold RefreshSession until released.
type fakeAuth struct {
	mu           sync.Mutex
	calls        []string
	refreshCalls int
	refreshOut   service.RefreshOutcome
	loginRes     service.LoginResult
	gate         chan struct{}
	started      chan struct{}
}

func (f *fakeAuth) note(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *fakeAuth) Login(ctx context.Context, phone, pin string) service.LoginResult {
	f.note("login")
	return f.loginRes
}

func (f *fakeAuth) Logout(ctx context.Context) {
	f.note("logout")
}

func (f *fakeAuth) RefreshSession(ctx context.Context) service.RefreshOutcome {
	f.mu.Lock()
	f.refreshCalls++
	gate, started := f.gate, f.started
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	f.note("refresh")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshOut
}

func (f *fakeAuth) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newRealManager(t *testing.T) (*Manager, *repository.MemoryStore, *backendtest.Fake) {
	t.Helper()
	reg, err := demoaccount.NewStaticRegistry(security.NewHasher(4), demoaccount.DefaultSeeds())
	if err != nil {
		t.Fatalf("NewStaticRegistry: %v", err)
	}
	store := repository.NewMemoryStore()
	client := &backendtest.Fake{}
	svc := service.NewAuthService(reg, store, client, &security.CounterGenerator{}, nil, nil, zap.NewNop())
	m := New(svc, zap.NewNop())
	t.Cleanup(m.Close)
	return m, store, client
}

func expectMisuse(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		var me *sessiondomain.MisuseError
		if !ok || !errors.As(err, &me) {
			t.Errorf("recovered %v, want *MisuseError", r)
		}
	}()
	fn()
}

func TestNew_StartsLoading(t *testing.T) {
	m, _, _ := newRealManager(t)
	s := m.Snapshot()
	if !s.IsLoading || s.State != sessiondomain.StateLoading || s.IsAuthenticated {
		t.Errorf("initial snapshot = %+v", s)
	}
	select {
	case <-m.Loaded():
		t.Error("Loaded should not be closed before the first refresh")
	default:
	}
}

func TestRefresh_EndsLoading(t *testing.T) {
	m, _, client := newRealManager(t)
	s := m.RefreshSession(context.Background())
	if s.IsLoading || s.IsAuthenticated || s.State != sessiondomain.StateUnauthenticated {
		t.Errorf("snapshot = %+v", s)
	}
	select {
	case <-m.Loaded():
	default:
		t.Error("Loaded should be closed after the first refresh")
	}
	if n := client.Calls().Total(); n != 0 {
		t.Errorf("remote calls = %d, want 0", n)
	}
}

func TestRefresh_RestoresStoredSession(t *testing.T) {
	m, store, _ := newRealManager(t)
	_ = store.Save(context.Background(), "demo_abc", &profiledomain.Profile{ID: "demo-auditor", Phone: "9876543216", Role: profiledomain.RoleAuditor})
	s := m.RefreshSession(context.Background())
	if !s.IsAuthenticated || s.Token != "demo_abc" || s.Role() != profiledomain.RoleAuditor {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestRefresh_StaleWhenOffline(t *testing.T) {
	m, store, client := newRealManager(t)
	client.ValidateFunc = func(context.Context, string) (*backend.ValidateResponse, error) {
		return nil, backend.ErrTransport
	}
	_ = store.Save(context.Background(), "tok-1", staffManager)
	s := m.RefreshSession(context.Background())
	if !s.IsAuthenticated || !s.Stale {
		t.Errorf("snapshot = %+v, want authenticated and stale", s)
	}
}

func TestLoginAndLogout(t *testing.T) {
	m, _, _ := newRealManager(t)
	m.RefreshSession(context.Background())

	res := m.Login(context.Background(), "9876543210", "123456")
	if !res.Success {
		t.Fatalf("Login = %+v", res)
	}
	s := m.Snapshot()
	if !s.IsAuthenticated || s.State != sessiondomain.StateAuthenticated || s.Role() != profiledomain.RoleSuperAdmin {
		t.Errorf("after login = %+v", s)
	}

	m.Logout(context.Background())
	m.Logout(context.Background())
	s = m.Snapshot()
	if s.IsAuthenticated || s.User != nil || s.Token != "" || s.State != sessiondomain.StateUnauthenticated {
		t.Errorf("after logout = %+v", s)
	}
}

func TestLogin_FailureLeavesState(t *testing.T) {
	m, _, _ := newRealManager(t)
	m.RefreshSession(context.Background())
	m.Login(context.Background(), "9876543210", "123456")

	res := m.Login(context.Background(), "9876543211", "000000")
	if res.Success || res.Failure != sessiondomain.FailureAuthRejected {
		t.Fatalf("Login = %+v", res)
	}
	if s := m.Snapshot(); !s.IsAuthenticated || s.Role() != profiledomain.RoleSuperAdmin {
		t.Errorf("failed login changed state: %+v", s)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	m, _, _ := newRealManager(t)
	m.Login(context.Background(), "9876543210", "123456")
	s := m.Snapshot()
	s.User.Role = profiledomain.RoleAuditor
	if m.Snapshot().Role() != profiledomain.RoleSuperAdmin {
		t.Error("mutating a snapshot changed manager state")
	}
}

func TestManualRefresh_DoesNotReenterLoading(t *testing.T) {
	auth := &fakeAuth{refreshOut: service.RefreshOutcome{Token: "t", User: staffManager}}
	m := New(auth, nil)
	defer m.Close()
	m.RefreshSession(context.Background())

	auth.mu.Lock()
	auth.gate = make(chan struct{})
	auth.started = make(chan struct{})
	gate, started := auth.gate, auth.started
	auth.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.RefreshSession(context.Background())
	}()
	<-started
	if s := m.Snapshot(); s.IsLoading || !s.IsAuthenticated {
		t.Errorf("during manual refresh = %+v", s)
	}
	close(gate)
	<-done
}

func TestRefresh_ConcurrentCallersShareOneCall(t *testing.T) {
	auth := &fakeAuth{
		refreshOut: service.RefreshOutcome{Token: "t", User: staffManager},
		gate:       make(chan struct{}),
		started:    make(chan struct{}),
	}
	m := New(auth, nil)
	defer m.Close()

	const callers = 5
	results := make(chan Snapshot, callers)
	go func() { results <- m.RefreshSession(context.Background()) }()
	<-auth.started
	for i := 1; i < callers; i++ {
		go func() { results <- m.RefreshSession(context.Background()) }()
	}
	time.Sleep(50 * time.Millisecond)
	close(auth.gate)

	for i := 0; i < callers; i++ {
		if s := <-results; !s.IsAuthenticated {
			t.Errorf("caller %d snapshot = %+v", i, s)
		}
	}
	auth.mu.Lock()
	defer auth.mu.Unlock()
	if auth.refreshCalls != 1 {
		t.Errorf("RefreshSession calls = %d, want 1", auth.refreshCalls)
	}
}

func TestLogin_WaitsForInFlightRefresh(t *testing.T) {
	auth := &fakeAuth{
		refreshOut: service.RefreshOutcome{},
		loginRes:   service.LoginResult{Success: true, Token: "t2", User: staffManager},
		gate:       make(chan struct{}),
		started:    make(chan struct{}),
	}
	m := New(auth, nil)
	defer m.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.RefreshSession(context.Background())
	}()
	<-auth.started
	go func() {
		defer wg.Done()
		m.Login(context.Background(), "9000000001", "1")
	}()
	time.Sleep(20 * time.Millisecond)
	if got := auth.order(); len(got) != 0 {
		t.Errorf("login ran while refresh in flight: %v", got)
	}
	close(auth.gate)
	wg.Wait()

	if got := auth.order(); len(got) != 2 || got[0] != "refresh" || got[1] != "login" {
		t.Errorf("order = %v, want [refresh login]", got)
	}
	if s := m.Snapshot(); !s.IsAuthenticated || s.Token != "t2" {
		t.Errorf("final snapshot = %+v", s)
	}
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	m, _, _ := newRealManager(t)
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.RefreshSession(context.Background())
	m.Login(context.Background(), "9876543215", "678901")

	// The buffer keeps only the latest state.
	s := <-ch
	if !s.IsAuthenticated || s.Role() != profiledomain.RoleVetStaff {
		t.Errorf("latest = %+v", s)
	}
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestClose_DiscardsInFlightAndPanicsAfter(t *testing.T) {
	auth := &fakeAuth{
		refreshOut: service.RefreshOutcome{Token: "t", User: staffManager},
		gate:       make(chan struct{}),
		started:    make(chan struct{}),
	}
	m := New(auth, nil)
	ch, _ := m.Subscribe()

	done := make(chan Snapshot, 1)
	go func() { done <- m.RefreshSession(context.Background()) }()
	<-auth.started
	m.Close()
	close(auth.gate)

	if s := <-done; s.IsAuthenticated {
		t.Errorf("result applied after Close: %+v", s)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed by Close")
	}
	select {
	case <-m.loaded:
	default:
		t.Error("Close should release loading waiters")
	}
	expectMisuse(t, func() { m.Snapshot() })
	expectMisuse(t, func() { m.Login(context.Background(), "1", "2") })
	m.Close()
}

func TestRefresh_CanceledCallerDoesNotDiscardSharedResult(t *testing.T) {
	m, store, client := newRealManager(t)
	_ = store.Save(context.Background(), "real-token", staffManager)
	started := make(chan struct{})
	gate := make(chan struct{})
	client.ValidateFunc = func(ctx context.Context, _ string) (*backend.ValidateResponse, error) {
		close(started)
		<-gate
		if ctx.Err() != nil {
			t.Error("shared refresh ran on a canceled context")
		}
		return &backend.ValidateResponse{Success: true}, nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	first := make(chan Snapshot, 1)
	go func() { first <- m.RefreshSession(ctxA) }()
	<-started

	second := make(chan Snapshot, 1)
	go func() { second <- m.RefreshSession(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if s := <-first; s.IsAuthenticated || !s.IsLoading {
		t.Errorf("canceled caller snapshot = %+v, want still loading", s)
	}
	close(gate)

	s := <-second
	if !s.IsAuthenticated || s.IsLoading || s.Token != "real-token" {
		t.Errorf("live caller snapshot = %+v", s)
	}
	if tok, _ := store.GetToken(context.Background()); tok != "real-token" {
		t.Errorf("store token = %q", tok)
	}
	if cur := m.Snapshot(); !cur.IsAuthenticated || cur.State != sessiondomain.StateAuthenticated {
		t.Errorf("manager snapshot = %+v", cur)
	}
}

func TestWaitLoaded(t *testing.T) {
	m, _, _ := newRealManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.WaitLoaded(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitLoaded before refresh = %v, want deadline exceeded", err)
	}
	m.RefreshSession(context.Background())
	s, err := m.WaitLoaded(context.Background())
	if err != nil || s.IsLoading {
		t.Errorf("WaitLoaded = %+v, %v", s, err)
	}
}

func TestContextScope(t *testing.T) {
	m, _, _ := newRealManager(t)
	ctx := WithManager(context.Background(), m)
	if FromContext(ctx) != m {
		t.Error("FromContext should return the scoped manager")
	}
	expectMisuse(t, func() { FromContext(context.Background()) })

	var nilManager *Manager
	expectMisuse(t, func() { nilManager.Snapshot() })
	expectMisuse(t, func() { FromContext(WithManager(context.Background(), nil)) })
}
