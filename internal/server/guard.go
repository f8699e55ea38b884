package server

import (
	"net/http"

	"go.uber.org/zap"

	"staff-dashboard/internal/policy/engine"
	"staff-dashboard/internal/session/manager"
)

// Guard lets a request through only if the route policy allows the current session; otherwise it
// answers 303 to the policy's redirect. It waits while the session is still loading, and fails
// closed to /login when the policy cannot be evaluated.
func (s *Server) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mgr := manager.FromContext(r.Context())
		snap, err := s.waitLoaded(r.Context(), mgr)
		if err != nil {
			http.Error(w, "session is still loading", http.StatusServiceUnavailable)
			return
		}
		decision, err := s.routes.Evaluate(r.Context(), engine.RouteInput{
			Path:          r.URL.Path,
			Authenticated: snap.IsAuthenticated,
			Role:          snap.Role(),
		})
		if err != nil {
			s.logger.Error("guard: route policy failed", zap.String("path", r.URL.Path), zap.Error(err))
			decision = engine.RouteDecision{Redirect: "/login"}
		}
		if !decision.Allow {
			target := decision.Redirect
			if target == "" {
				target = "/login"
			}
			if target == r.URL.Path {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
