// Package service implements staff sign-in, sign-out, and session refresh against the session store,
// the demo account registry, and the remote backend.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"staff-dashboard/internal/backend"
	"staff-dashboard/internal/demoaccount"
	profiledomain "staff-dashboard/internal/profile/domain"
	"staff-dashboard/internal/security"
	sessiondomain "staff-dashboard/internal/session/domain"
	"staff-dashboard/internal/session/repository"
	"staff-dashboard/internal/telemetry"
)

// User-facing login messages.
const (
	MsgMissingCredentials  = "Phone number and PIN are required"
	MsgInvalidCredentials  = "Invalid phone number or PIN"
	MsgTransport           = "Unable to reach the server. Check your connection and try again."
	MsgBackendUnconfigured = "Staff sign-in is not set up on this server yet. Use a demo account (for example 9876543210 / 123456) to continue."
	MsgRejected            = "Login failed"
	MsgUnexpected          = "Login failed. Please try again."
	MsgCanceled            = "Login canceled"
)

const eventSource = "dashboard"

// LoginResult is the user-displayable outcome of Login. Failure is FailureNone exactly when Success is true.
type LoginResult struct {
	Success bool
	Token   string
	User    *profiledomain.Profile
	Message string
	Failure sessiondomain.FailureKind
}

// Err returns the taxonomy sentinel for the failure, or nil on success.
func (r LoginResult) Err() error {
	return r.Failure.Err()
}

// RefreshOutcome is the session resolved by RefreshSession. Stale is set when the cached profile
// was trusted because the backend could not be asked.
type RefreshOutcome struct {
	Token   string
	User    *profiledomain.Profile
	Stale   bool
	Failure sessiondomain.FailureKind
}

// Authenticated reports whether the outcome carries both a token and a user.
func (o RefreshOutcome) Authenticated() bool {
	return o.Token != "" && o.User != nil
}

// AuthService runs the session operations. It never returns Go errors to callers: every expected
// fault is folded into a LoginResult or RefreshOutcome.
type AuthService struct {
	registry demoaccount.Registry
	store    repository.Store
	client   backend.Client
	tokens   security.TokenGenerator
	emitter  telemetry.EventEmitter
	logger   *zap.Logger
	ops      metric.Int64Counter
	now      func() time.Time
}

// NewAuthService returns an AuthService. registry, emitter, meter, and logger may be nil;
// client nil means no backend is provisioned.
func NewAuthService(
	registry demoaccount.Registry,
	store repository.Store,
	client backend.Client,
	tokens security.TokenGenerator,
	emitter telemetry.EventEmitter,
	meter metric.Meter,
	logger *zap.Logger,
) *AuthService {
	if registry == nil {
		registry = demoaccount.Disabled{}
	}
	if client == nil {
		client = backend.Unconfigured{}
	}
	if tokens == nil {
		tokens = security.UUIDGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}
	ops, err := meter.Int64Counter("staffdash.session.operations",
		metric.WithDescription("Session operations by operation and outcome"))
	if err != nil {
		logger.Warn("session: counter unavailable", zap.Error(err))
		ops, _ = noop.NewMeterProvider().Meter("").Int64Counter("staffdash.session.operations")
	}
	return &AuthService{
		registry: registry,
		store:    store,
		client:   client,
		tokens:   tokens,
		emitter:  emitter,
		logger:   logger,
		ops:      ops,
		now:      time.Now,
	}
}

// Login signs in with phone and pin. Demo accounts are matched locally before any network access.
// The phone is trimmed; the PIN is used exactly as given.
func (s *AuthService) Login(ctx context.Context, phone, pin string) LoginResult {
	phone = strings.TrimSpace(phone)
	log := s.logger.With(zap.String("phone", maskPhone(phone)))

	if phone == "" || pin == "" {
		return s.loginFailed(ctx, sessiondomain.FailureAuthRejected, MsgMissingCredentials, false)
	}

	if acct, ok := s.registry.Lookup(phone); ok {
		if !acct.MatchPIN(pin) {
			log.Info("session: demo login rejected")
			return s.loginFailed(ctx, sessiondomain.FailureAuthRejected, MsgInvalidCredentials, true)
		}
		token := sessiondomain.DemoTokenPrefix + s.tokens.NewToken()
		user := acct.Profile.Clone()
		if err := s.store.Save(ctx, token, user); err != nil {
			log.Error("session: save demo session", zap.Error(err))
			return s.loginFailed(ctx, sessiondomain.FailureUnexpected, MsgUnexpected, true)
		}
		log.Info("session: demo login", zap.String("role", string(user.Role)))
		s.record(ctx, "login", "success", &telemetry.SessionEvent{
			Type: telemetry.EventLogin, UserID: user.ID, Role: string(user.Role), Demo: true,
		})
		return LoginResult{Success: true, Token: token, User: user}
	}

	resp, err := s.client.StaffLogin(ctx, phone, pin)
	if ctx.Err() != nil {
		log.Info("session: login canceled")
		return s.loginFailed(ctx, sessiondomain.FailureUnexpected, MsgCanceled, false)
	}
	switch {
	case errors.Is(err, backend.ErrTransport):
		log.Warn("session: backend unreachable", zap.Error(err))
		return s.loginFailed(ctx, sessiondomain.FailureTransport, MsgTransport, false)
	case errors.Is(err, backend.ErrFunctionNotFound):
		log.Warn("session: staff_login not provisioned", zap.Error(err))
		return s.loginFailed(ctx, sessiondomain.FailureBackendUnconfigured, MsgBackendUnconfigured, false)
	case err != nil:
		log.Error("session: staff_login failed", zap.Error(err))
		return s.loginFailed(ctx, sessiondomain.FailureUnexpected, MsgUnexpected, false)
	case resp == nil:
		log.Error("session: staff_login returned no body")
		return s.loginFailed(ctx, sessiondomain.FailureUnexpected, MsgUnexpected, false)
	}

	if !resp.Success {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = MsgRejected
		}
		log.Info("session: login rejected by backend")
		return s.loginFailed(ctx, sessiondomain.FailureAuthRejected, msg, false)
	}
	if resp.SessionToken == "" || resp.User == nil {
		log.Error("session: staff_login success without token or user")
		return s.loginFailed(ctx, sessiondomain.FailureUnexpected, MsgUnexpected, false)
	}

	user := resp.User.Clone()
	if err := s.store.Save(ctx, resp.SessionToken, user); err != nil {
		log.Error("session: save session", zap.Error(err))
		return s.loginFailed(ctx, sessiondomain.FailureUnexpected, MsgUnexpected, false)
	}
	log.Info("session: login", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	s.record(ctx, "login", "success", &telemetry.SessionEvent{
		Type: telemetry.EventLogin, UserID: user.ID, Role: string(user.Role),
	})
	return LoginResult{Success: true, Token: resp.SessionToken, User: user}
}

func (s *AuthService) loginFailed(ctx context.Context, kind sessiondomain.FailureKind, msg string, demo bool) LoginResult {
	s.record(ctx, "login", string(kind), &telemetry.SessionEvent{
		Type: telemetry.EventLoginFailed, Demo: demo, Failure: string(kind),
	})
	return LoginResult{Message: msg, Failure: kind}
}

// Logout ends the current session. The remote call is best-effort; local state is always cleared,
// even when ctx is already canceled.
func (s *AuthService) Logout(ctx context.Context) {
	token, err := s.store.GetToken(ctx)
	if err != nil {
		s.logger.Warn("session: read token for logout", zap.Error(err))
	}
	demo := sessiondomain.IsDemoToken(token)
	if token != "" && !demo {
		if err := s.client.LogoutSession(ctx, token); err != nil {
			s.logger.Info("session: remote logout failed", zap.Error(err))
		}
	}
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("session: clear on logout", zap.Error(err))
	}
	s.record(ctx, "logout", "success", &telemetry.SessionEvent{Type: telemetry.EventLogout, Demo: demo})
}

// RefreshSession resolves the stored session. It never fails: faults become an unauthenticated
// outcome, except an unreachable backend with a cached profile, which stays authenticated (Stale).
func (s *AuthService) RefreshSession(ctx context.Context) RefreshOutcome {
	token, err := s.store.GetToken(ctx)
	if err != nil {
		s.logger.Error("session: read token", zap.Error(err))
		return s.refreshEnded(ctx, sessiondomain.FailureUnexpected, false)
	}
	cached, err := s.store.GetCachedProfile(ctx)
	if err != nil {
		s.logger.Warn("session: read cached profile", zap.Error(err))
		cached = nil
	}

	if token == "" {
		if cached != nil {
			s.logger.Info("session: clearing cached profile without token")
			s.clear(ctx)
		}
		return s.refreshEnded(ctx, sessiondomain.FailureNone, false)
	}

	if sessiondomain.IsDemoToken(token) {
		if cached == nil {
			s.logger.Info("session: demo token without profile")
			s.clear(ctx)
			return s.refreshEnded(ctx, sessiondomain.FailureSessionInvalid, true)
		}
		return s.refreshed(ctx, RefreshOutcome{Token: token, User: cached}, true)
	}

	resp, err := s.client.ValidateSession(ctx, token)
	if ctx.Err() != nil {
		s.logger.Info("session: refresh canceled")
		return RefreshOutcome{Failure: sessiondomain.FailureUnexpected}
	}
	switch {
	case errors.Is(err, backend.ErrTransport):
		if cached != nil {
			s.logger.Warn("session: backend unavailable, trusting cached profile", zap.Error(err))
			return s.refreshed(ctx, RefreshOutcome{Token: token, User: cached, Stale: true}, false)
		}
		s.logger.Warn("session: backend unavailable and no cached profile", zap.Error(err))
		s.clear(ctx)
		return s.refreshEnded(ctx, sessiondomain.FailureTransport, false)
	case errors.Is(err, backend.ErrFunctionNotFound):
		s.logger.Warn("session: validate_session not provisioned", zap.Error(err))
		s.clear(ctx)
		return s.refreshEnded(ctx, sessiondomain.FailureBackendUnconfigured, false)
	case err != nil:
		s.logger.Error("session: validate_session failed", zap.Error(err))
		s.clear(ctx)
		return s.refreshEnded(ctx, sessiondomain.FailureUnexpected, false)
	case resp == nil || !resp.Success:
		s.logger.Info("session: session no longer valid")
		s.clear(ctx)
		return s.refreshEnded(ctx, sessiondomain.FailureSessionInvalid, false)
	}

	user := cached
	if user == nil && resp.User != nil {
		user = resp.User.Clone()
		if err := s.store.Save(ctx, token, user); err != nil {
			s.logger.Warn("session: cache profile", zap.Error(err))
		}
	}
	if user == nil {
		s.logger.Warn("session: valid token but no profile")
		s.clear(ctx)
		return s.refreshEnded(ctx, sessiondomain.FailureSessionInvalid, false)
	}
	return s.refreshed(ctx, RefreshOutcome{Token: token, User: user}, false)
}

func (s *AuthService) refreshed(ctx context.Context, out RefreshOutcome, demo bool) RefreshOutcome {
	typ, outcome := telemetry.EventRefresh, "success"
	if out.Stale {
		typ, outcome = telemetry.EventRefreshStale, "stale"
	}
	s.record(ctx, "refresh", outcome, &telemetry.SessionEvent{
		Type: typ, UserID: out.User.ID, Role: string(out.User.Role), Demo: demo,
	})
	return out
}

func (s *AuthService) refreshEnded(ctx context.Context, kind sessiondomain.FailureKind, demo bool) RefreshOutcome {
	outcome := string(kind)
	if kind == sessiondomain.FailureNone {
		outcome = "signed_out"
	}
	s.record(ctx, "refresh", outcome, &telemetry.SessionEvent{
		Type: telemetry.EventRefreshEnded, Demo: demo, Failure: string(kind),
	})
	return RefreshOutcome{Failure: kind}
}

func (s *AuthService) clear(ctx context.Context) {
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("session: clear", zap.Error(err))
	}
}

func (s *AuthService) record(ctx context.Context, op, outcome string, event *telemetry.SessionEvent) {
	s.ops.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
	if s.emitter == nil {
		return
	}
	event.Source = eventSource
	event.CreatedAt = s.now().UTC()
	telemetry.EmitAsync(s.emitter, s.logger, event)
}

// maskPhone keeps the last four digits.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
