// Package telemetry defines session events and the emitters that ship them (OTel logs, Kafka).
package telemetry

import (
	"context"
	"time"
)

// Session event types.
const (
	EventLogin        = "session.login"
	EventLoginFailed  = "session.login_failed"
	EventLogout       = "session.logout"
	EventRefresh      = "session.refresh"
	EventRefreshStale = "session.refresh_stale"
	EventRefreshEnded = "session.refresh_ended"
)

// SessionEvent describes one session operation outcome. It never carries PINs or tokens.
type SessionEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Demo      bool      `json:"demo"`
	Failure   string    `json:"failure,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventEmitter emits session events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *SessionEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, *SessionEvent) error { return nil }
