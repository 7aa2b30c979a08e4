package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"opsflow/internal/model"
	"opsflow/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChannelSource_EmitDropsWhenFull(t *testing.T) {
	src := NewChannelSource(1)

	assert.True(t, src.Emit(model.TriggerEvent{Type: model.TriggerRequestCreated}))
	assert.False(t, src.Emit(model.TriggerEvent{Type: model.TriggerRequestCreated}), "full buffer drops, never blocks")
}

func TestPump_DrainsSourceIntoDispatcher(t *testing.T) {
	notifier := &fakeNotifier{}
	d, _ := newTestDispatcher(t, []rules.WorkflowRule{
		{
			ID:      "any-request",
			Trigger: model.TriggerRequestCreated,
			Actions: []model.WorkflowAction{{Type: model.ActionNotify, Target: "ops", Params: map[string]interface{}{"title": "pumped"}}},
			Active:  true,
		},
	}, Adapters{Notifier: notifier})

	src := NewChannelSource(4)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		Pump(ctx, src, d, zap.NewNop())
	}()

	require.True(t, src.Emit(requestEvent(model.TriggerRequestCreated, "medium")))
	require.True(t, src.Emit(requestEvent(model.TriggerRequestCreated, "medium")))

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.calls) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}
