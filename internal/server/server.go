// Package server serves the local dashboard shell: the session API and role-guarded pages.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"staff-dashboard/internal/policy/engine"
	profiledomain "staff-dashboard/internal/profile/domain"
	sessiondomain "staff-dashboard/internal/session/domain"
	"staff-dashboard/internal/session/manager"
)

// defaultLoadWait bounds how long a guarded request waits for the initial session resolution.
const defaultLoadWait = 15 * time.Second

// Server wires the session manager and the route evaluator into an HTTP router.
type Server struct {
	mgr      *manager.Manager
	routes   engine.RouteEvaluator
	checks   map[string]HealthCheck
	logger   *zap.Logger
	loadWait time.Duration
}

// NewServer returns a Server. checks are run by /healthz in addition to the route policy check.
func NewServer(mgr *manager.Manager, routes engine.RouteEvaluator, checks map[string]HealthCheck, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		mgr:      mgr,
		routes:   routes,
		checks:   checks,
		logger:   logger,
		loadWait: defaultLoadWait,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.withSession)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/refresh", s.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.Guard)
		r.Get("/*", s.handlePage)
	})
	return r
}

// withSession puts the manager in scope for handlers.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(manager.WithManager(r.Context(), s.mgr)))
	})
}

type loginRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// sessionView is the client-visible session. The token never leaves the process.
type sessionView struct {
	Loading       bool                   `json:"loading"`
	Authenticated bool                   `json:"authenticated"`
	State         string                 `json:"state"`
	Stale         bool                   `json:"stale,omitempty"`
	Demo          bool                   `json:"demo,omitempty"`
	User          *profiledomain.Profile `json:"user,omitempty"`
}

func viewOf(snap manager.Snapshot) sessionView {
	return sessionView{
		Loading:       snap.IsLoading,
		Authenticated: snap.IsAuthenticated,
		State:         snap.State.String(),
		Stale:         snap.Stale,
		Demo:          sessiondomain.IsDemoToken(snap.Token),
		User:          snap.User,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(manager.FromContext(r.Context()).Snapshot()))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return
	}
	mgr := manager.FromContext(r.Context())
	res := mgr.Login(r.Context(), req.Phone, req.PIN)
	if !res.Success {
		writeJSON(w, failureStatus(res.Failure), errorResponse{Error: string(res.Failure), Message: res.Message})
		return
	}
	writeJSON(w, http.StatusOK, viewOf(mgr.Snapshot()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	manager.FromContext(r.Context()).Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(manager.FromContext(r.Context()).RefreshSession(r.Context())))
}

type pageResponse struct {
	Path string                 `json:"path"`
	User *profiledomain.Profile `json:"user,omitempty"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pageResponse{Path: r.URL.Path, User: manager.FromContext(r.Context()).Snapshot().User})
}

func failureStatus(kind sessiondomain.FailureKind) int {
	switch kind {
	case sessiondomain.FailureAuthRejected:
		return http.StatusUnauthorized
	case sessiondomain.FailureTransport, sessiondomain.FailureBackendUnconfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// waitLoaded waits for the manager's first refresh, bounded by loadWait.
func (s *Server) waitLoaded(ctx context.Context, mgr *manager.Manager) (manager.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.loadWait)
	defer cancel()
	return mgr.WaitLoaded(ctx)
}
