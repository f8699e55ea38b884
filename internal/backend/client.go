// Package backend defines the remote RPC procedures the dashboard consumes for staff sign-in.
package backend

import (
	"context"
	"errors"

	profiledomain "staff-dashboard/internal/profile/domain"
)

// Procedure names exposed by the backend.
const (
	ProcStaffLogin      = "staff_login"
	ProcValidateSession = "validate_session"
	ProcLogoutSession   = "logout_session"
)

var (
	// ErrTransport wraps failures to reach the backend: dial errors, timeouts, 5xx.
	ErrTransport = errors.New("backend: transport failure")
	// ErrFunctionNotFound means the backend answered but the procedure is not provisioned.
	ErrFunctionNotFound = errors.New("backend: function not found")
)

// LoginResponse is the result of staff_login. On Success both SessionToken and User are set.
type LoginResponse struct {
	Success      bool                   `json:"success"`
	SessionToken string                 `json:"session_token,omitempty"`
	User         *profiledomain.Profile `json:"user,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

// ValidateResponse is the result of validate_session.
type ValidateResponse struct {
	Success bool                   `json:"success"`
	User    *profiledomain.Profile `json:"user,omitempty"`
}

// Client calls the backend's session procedures. Errors wrap ErrTransport or ErrFunctionNotFound
// where the cause is known; any other error is an unexpected failure.
type Client interface {
	StaffLogin(ctx context.Context, phone, pin string) (*LoginResponse, error)
	ValidateSession(ctx context.Context, sessionToken string) (*ValidateResponse, error)
	LogoutSession(ctx context.Context, sessionToken string) error
}

// Unconfigured is the Client used when no backend URL is set: every procedure is missing.
type Unconfigured struct{}

func (Unconfigured) StaffLogin(context.Context, string, string) (*LoginResponse, error) {
	return nil, ErrFunctionNotFound
}

func (Unconfigured) ValidateSession(context.Context, string) (*ValidateResponse, error) {
	return nil, ErrFunctionNotFound
}

func (Unconfigured) LogoutSession(context.Context, string) error {
	return ErrFunctionNotFound
}
