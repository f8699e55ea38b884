// Package consumer reads session events back from Kafka.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"staff-dashboard/internal/telemetry"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Handler processes one decoded event. A returned error is logged; consumption continues.
type Handler func(ctx context.Context, event *telemetry.SessionEvent) error

// NewReader returns a group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Run reads until ctx is done. Malformed messages are logged and skipped.
func Run(ctx context.Context, r MessageReader, handle Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Warn("consumer: kafka read error", zap.Error(err))
			continue
		}
		var event telemetry.SessionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Warn("consumer: malformed event", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		if err := handle(ctx, &event); err != nil {
			logger.Warn("consumer: handle event", zap.String("event_type", event.Type), zap.Error(err))
		}
	}
}
