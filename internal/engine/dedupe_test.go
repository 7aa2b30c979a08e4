package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupingSender_SuppressesIdenticalSends(t *testing.T) {
	inner := &fakeNotifier{}
	sender := NewDedupingSender(inner, 16, time.Minute)
	ctx := context.Background()

	require.NoError(t, sender.Send(ctx, []string{"ops"}, "deadline", "hurry up"))
	require.NoError(t, sender.Send(ctx, []string{"ops"}, "deadline", "hurry up"))

	assert.Len(t, inner.calls, 1, "identical re-delivery suppressed")
}

func TestDedupingSender_DistinctSendsPassThrough(t *testing.T) {
	inner := &fakeNotifier{}
	sender := NewDedupingSender(inner, 16, time.Minute)
	ctx := context.Background()

	require.NoError(t, sender.Send(ctx, []string{"ops"}, "deadline", "hurry up"))
	require.NoError(t, sender.Send(ctx, []string{"ops"}, "deadline", "different body"))
	require.NoError(t, sender.Send(ctx, []string{"safety-team"}, "deadline", "hurry up"))

	assert.Len(t, inner.calls, 3)
}

func TestDedupingSender_FailedSendStaysRetryable(t *testing.T) {
	inner := &fakeNotifier{err: errors.New("smtp down")}
	sender := NewDedupingSender(inner, 16, time.Minute)
	ctx := context.Background()

	require.Error(t, sender.Send(ctx, []string{"ops"}, "deadline", "hurry up"))

	inner.err = nil
	require.NoError(t, sender.Send(ctx, []string{"ops"}, "deadline", "hurry up"))
	assert.Len(t, inner.calls, 2, "failure is not remembered as sent")
}
