package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a login or refresh did not produce an authenticated session.
type FailureKind string

const (
	FailureNone                FailureKind = ""
	FailureTransport           FailureKind = "transport"
	FailureBackendUnconfigured FailureKind = "backend_unconfigured"
	FailureAuthRejected        FailureKind = "auth_rejected"
	FailureSessionInvalid      FailureKind = "session_invalid"
	FailureUnexpected          FailureKind = "unexpected"
)

// Sentinel errors for each failure kind; use errors.Is against FailureKind.Err().
var (
	ErrTransport           = errors.New("backend unreachable")
	ErrBackendUnconfigured = errors.New("backend not configured")
	ErrAuthRejected        = errors.New("credentials rejected")
	ErrSessionInvalid      = errors.New("session invalid")
	ErrUnexpected          = errors.New("unexpected failure")
)

// Err returns the sentinel error for k, or nil for FailureNone.
func (k FailureKind) Err() error {
	switch k {
	case FailureNone:
		return nil
	case FailureTransport:
		return ErrTransport
	case FailureBackendUnconfigured:
		return ErrBackendUnconfigured
	case FailureAuthRejected:
		return ErrAuthRejected
	case FailureSessionInvalid:
		return ErrSessionInvalid
	default:
		return ErrUnexpected
	}
}

// MisuseError reports a programming error: session state consumed outside the scope that owns it.
type MisuseError struct {
	Op string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("session: %s used outside an active session scope", e.Op)
}
