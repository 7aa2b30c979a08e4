package engine

import (
	"context"

	"opsflow/internal/model"

	"go.uber.org/zap"
)

// Source is an inbound feed of trigger events. It decouples the dispatch
// core from any specific transport: HTTP ingestion, a redis stream or an
// in-process channel all satisfy it.
type Source interface {
	Events() <-chan model.TriggerEvent
}

// ChannelSource is the trivial in-process Source
type ChannelSource struct {
	ch chan model.TriggerEvent
}

func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan model.TriggerEvent, buffer)}
}

func (s *ChannelSource) Events() <-chan model.TriggerEvent { return s.ch }

// Emit enqueues an event, dropping it when the buffer is full rather
// than blocking the producer.
func (s *ChannelSource) Emit(event model.TriggerEvent) bool {
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

// Pump drains a source into the dispatcher until ctx is cancelled or the
// source channel closes.
func Pump(ctx context.Context, src Source, d *Dispatcher, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-src.Events():
			if !ok {
				return
			}
			execs := d.Dispatch(ctx, event)
			log.Debug("Dispatched source event",
				zap.String("trigger", string(event.Type)),
				zap.Int("executions", len(execs)),
			)
		}
	}
}
