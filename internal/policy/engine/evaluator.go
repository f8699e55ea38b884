// Package engine decides, per dashboard route, whether the current session may see a page.
package engine

import (
	"context"

	profiledomain "staff-dashboard/internal/profile/domain"
)

// RouteInput is what a guard knows about a request.
type RouteInput struct {
	Path          string
	Authenticated bool
	Role          profiledomain.Role
}

// RouteDecision is either Allow or a Redirect target.
type RouteDecision struct {
	Allow    bool
	Redirect string
}

// denyToLogin is returned whenever a decision cannot be made.
var denyToLogin = RouteDecision{Allow: false, Redirect: "/login"}

// RouteEvaluator evaluates route access. On error the returned decision denies to /login.
type RouteEvaluator interface {
	Evaluate(ctx context.Context, in RouteInput) (RouteDecision, error)
}
