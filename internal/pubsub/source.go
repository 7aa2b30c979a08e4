package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"opsflow/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TriggerStream is the redis stream external producers append trigger
// events to (IoT gateways, cost monitors, other services).
const TriggerStream = "stream:triggers"

// StreamSource tails the trigger stream and exposes it as an
// engine.Source. Redis streams retain entries, so a restarted consumer
// re-reads from its last seen id: at-least-once delivery, which the
// dispatcher and adapters are built to tolerate.
type StreamSource struct {
	rdb    *redis.Client
	log    *zap.Logger
	events chan model.TriggerEvent
	lastID string
}

func NewStreamSource(rdb *redis.Client, log *zap.Logger) *StreamSource {
	return &StreamSource{
		rdb:    rdb,
		log:    log,
		events: make(chan model.TriggerEvent, 64),
		lastID: "$",
	}
}

func (s *StreamSource) Events() <-chan model.TriggerEvent {
	return s.events
}

// PublishTrigger appends a trigger event to the stream. Used by
// producers that live in this process; external producers XADD directly.
func PublishTrigger(ctx context.Context, rdb *redis.Client, event model.TriggerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: TriggerStream,
		ID:     "*",
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
}

// Run tails the stream until ctx is cancelled, decoding entries into
// trigger events. Malformed entries are logged and skipped; a bad
// producer must not wedge the feed.
func (s *StreamSource) Run(ctx context.Context) {
	defer close(s.events)

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := s.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{TriggerStream, s.lastID},
			Count:   32,
			Block:   5 * time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("Trigger stream read failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				s.lastID = msg.ID

				data, ok := msg.Values["data"].(string)
				if !ok {
					s.log.Warn("Trigger entry missing data field", zap.String("id", msg.ID))
					continue
				}

				var event model.TriggerEvent
				if err := json.Unmarshal([]byte(data), &event); err != nil {
					s.log.Warn("Failed to decode trigger event",
						zap.String("id", msg.ID),
						zap.Error(err),
					)
					continue
				}
				if event.Type == "" {
					continue
				}

				select {
				case s.events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
