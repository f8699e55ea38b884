package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// emitTimeout is the max time allowed for a single async emit. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops before shutting down OTel providers,
// so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not blocked.
// emitter and event may be nil; EmitAsync returns immediately without starting a goroutine.
// The goroutine uses context.Background() so caller cancellation does not abort an in-flight emit.
// The returned channel is closed when the emit finishes.
func EmitAsync(emitter EventEmitter, logger *zap.Logger, event *SessionEvent) <-chan struct{} {
	done := make(chan struct{})
	if emitter == nil || event == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		defer close(done)
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			logger.Warn("telemetry: async emit failed", zap.String("event_type", event.Type), zap.Error(err))
		}
	}()
	return done
}
