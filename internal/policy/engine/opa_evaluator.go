package engine

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const decisionQuery = "data.staffdash.routes.decision"

// DefaultRoutePolicy sends visitors without a session to /login, keeps signed-in users off /login,
// and restricts each section to its roles.
const DefaultRoutePolicy = `package staffdash.routes

section_roles := {
	"/admin": {"super_admin"},
	"/finance": {"super_admin", "manager", "accountant", "auditor"},
	"/herd": {"super_admin", "manager", "farm_worker", "vet_staff"},
	"/deliveries": {"super_admin", "manager", "delivery_staff"},
}

is_login if input.path == "/login"

in_section(s) if input.path == s

in_section(s) if startswith(input.path, concat("", [s, "/"]))

restricted_section := s if {
	some s
	section_roles[s]
	in_section(s)
}

role_allowed if not restricted_section

role_allowed if input.role in section_roles[restricted_section]

default decision := {"allow": false, "redirect": "/login"}

decision := {"allow": false, "redirect": "/login"} if {
	not input.authenticated
	not is_login
} else := {"allow": true, "redirect": ""} if {
	not input.authenticated
} else := {"allow": false, "redirect": "/"} if {
	is_login
} else := {"allow": false, "redirect": "/"} if {
	not role_allowed
} else := {"allow": true, "redirect": ""} if {
	true
}
`

// OPAEvaluator evaluates route access with a compiled OPA Rego policy.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

var _ RouteEvaluator = (*OPAEvaluator)(nil)

// NewOPAEvaluator compiles policy (DefaultRoutePolicy when empty). The policy must define
// data.staffdash.routes.decision as an object with "allow" and "redirect".
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if strings.TrimSpace(policy) == "" {
		policy = DefaultRoutePolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"routes.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile route policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(decisionQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare route policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// HealthCheck compiles and evaluates the default policy for an anonymous visitor.
func HealthCheck(ctx context.Context) error {
	e, err := NewOPAEvaluator(ctx, DefaultRoutePolicy)
	if err != nil {
		return err
	}
	d, err := e.Evaluate(ctx, RouteInput{Path: "/"})
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if d.Allow || d.Redirect != "/login" {
		return fmt.Errorf("default policy returned %+v for anonymous visitor", d)
	}
	return nil
}

// Evaluate returns the decision for in. Any failure denies to /login.
func (e *OPAEvaluator) Evaluate(ctx context.Context, in RouteInput) (RouteDecision, error) {
	if e == nil {
		return denyToLogin, errors.New("route evaluator not initialized")
	}
	input := map[string]interface{}{
		"path":          cleanPath(in.Path),
		"authenticated": in.Authenticated,
		"role":          string(in.Role),
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return denyToLogin, fmt.Errorf("eval route policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return denyToLogin, errors.New("route policy returned no result")
	}
	obj, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return denyToLogin, fmt.Errorf("route policy returned %T, want object", rs[0].Expressions[0].Value)
	}
	allow, _ := obj["allow"].(bool)
	redirect, _ := obj["redirect"].(string)
	if !allow && redirect == "" {
		return denyToLogin, errors.New("route policy denied without a redirect")
	}
	return RouteDecision{Allow: allow, Redirect: redirect}, nil
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
