package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"staff-dashboard/internal/policy/engine"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck reports whether a dependency is usable (session store, backend). nil means healthy.
type HealthCheck func(ctx context.Context) error

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealth runs the route policy check and every configured dependency check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	run := func(name string, check HealthCheck) {
		if err := check(ctx); err != nil {
			s.logger.Warn("health: check failed", zap.String("check", name), zap.Error(err))
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}
	run("route_policy", engine.HealthCheck)
	for name, check := range s.checks {
		if check != nil {
			run(name, check)
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
