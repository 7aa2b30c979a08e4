package pubsub

import (
	"context"

	"opsflow/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamSink writes trigger events onto the redis trigger stream. The
// lifecycle services and SLA jobs emit through here so in-process and
// external triggers share one consumption path.
type StreamSink struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewStreamSink(rdb *redis.Client, log *zap.Logger) *StreamSink {
	return &StreamSink{rdb: rdb, log: log}
}

// Emit is best-effort: a failed append is logged, never surfaced to the
// operation that produced the event.
func (s *StreamSink) Emit(ctx context.Context, event model.TriggerEvent) {
	if err := PublishTrigger(ctx, s.rdb, event); err != nil {
		s.log.Warn("Failed to publish trigger event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
