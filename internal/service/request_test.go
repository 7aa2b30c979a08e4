package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"opsflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLifecycleFixture() (*LifecycleService, *memStore, *recordingSink) {
	store := newMemStore()
	sink := &recordingSink{}
	svc := NewLifecycleService(store, nopBus{}, sink)
	return svc, store, sink
}

func createPending(t *testing.T, svc *LifecycleService, priority model.Priority) *model.MaintenanceRequest {
	t.Helper()
	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		Title:     "Leaking radiator",
		Location:  "b2-storage",
		Priority:  priority,
		CreatedBy: "resident-9",
	})
	require.NoError(t, err)
	return req
}

func TestCreateRequest_Defaults(t *testing.T) {
	svc, _, sink := newLifecycleFixture()

	before := time.Now()
	req, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		Title:     "Broken light",
		CreatedBy: "resident-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.Equal(t, model.PriorityMedium, req.Priority, "priority defaults to medium")
	assert.Nil(t, req.AssignedTo)

	// Medium priority gets a 24h window.
	assert.WithinDuration(t, before.Add(24*time.Hour), req.SLADeadline, time.Minute)

	created := sink.byType(model.TriggerRequestCreated)
	require.Len(t, created, 1)
	assert.Equal(t, model.String(req.ID), created[0].Context["request_id"])
}

func TestCreateRequest_SLAWindowsByPriority(t *testing.T) {
	svc, _, _ := newLifecycleFixture()

	windows := map[model.Priority]time.Duration{
		model.PriorityCritical: 4 * time.Hour,
		model.PriorityHigh:     8 * time.Hour,
		model.PriorityMedium:   24 * time.Hour,
		model.PriorityLow:      72 * time.Hour,
	}

	for priority, window := range windows {
		before := time.Now()
		req := createPending(t, svc, priority)
		assert.WithinDuration(t, before.Add(window), req.SLADeadline, time.Minute,
			"window for %s", priority)
	}
}

func TestCreateRequest_RequiresTitle(t *testing.T) {
	svc, _, _ := newLifecycleFixture()

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{CreatedBy: "r1"})
	require.Error(t, err)
}

func TestClaim_FirstClaimerWins(t *testing.T) {
	svc, _, sink := newLifecycleFixture()
	req := createPending(t, svc, model.PriorityHigh)

	claimed, err := svc.Claim(context.Background(), req.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, claimed.Status)
	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, "staff-1", *claimed.AssignedTo)
	assert.NotNil(t, claimed.AssignedAt)

	_, err = svc.Claim(context.Background(), req.ID, "staff-2")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	changed := sink.byType(model.TriggerStatusChanged)
	require.Len(t, changed, 1, "only the winning claim emits")
	assert.Equal(t, model.String("PENDING"), changed[0].Context["previous_status"])
	assert.Equal(t, model.String("staff-1"), changed[0].Context["assigned_to"])
}

func TestClaim_UnknownRequest(t *testing.T) {
	svc, _, _ := newLifecycleFixture()

	_, err := svc.Claim(context.Background(), "no-such-id", "staff-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaim_ConcurrentClaimersExactlyOneWins(t *testing.T) {
	svc, _, _ := newLifecycleFixture()
	req := createPending(t, svc, model.PriorityCritical)

	const claimers = 16
	var wg sync.WaitGroup
	errs := make([]error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Claim(context.Background(), req.ID, fmt.Sprintf("staff-%d", i))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyClaimed)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestLifecycle_FullPathStampsTimestamps(t *testing.T) {
	svc, _, sink := newLifecycleFixture()
	req := createPending(t, svc, model.PriorityMedium)
	ctx := context.Background()

	_, err := svc.Claim(ctx, req.ID, "staff-1")
	require.NoError(t, err)

	enRoute, err := svc.Depart(ctx, req.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusEnRoute, enRoute.Status)
	assert.NotNil(t, enRoute.EnRouteAt)

	inProgress, err := svc.StartWork(ctx, req.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, inProgress.Status)
	assert.NotNil(t, inProgress.WorkStartedAt)

	done, err := svc.Finish(ctx, req.ID, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	changed := sink.byType(model.TriggerStatusChanged)
	assert.Len(t, changed, 4, "claim plus three transitions")
}

func TestLifecycle_SkippingAStateIsInvalid(t *testing.T) {
	svc, _, _ := newLifecycleFixture()
	req := createPending(t, svc, model.PriorityMedium)
	ctx := context.Background()

	_, err := svc.Claim(ctx, req.ID, "staff-1")
	require.NoError(t, err)

	// ASSIGNED -> IN_PROGRESS skips EN_ROUTE.
	_, err = svc.StartWork(ctx, req.ID, "staff-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// ASSIGNED -> COMPLETED skips two states.
	_, err = svc.Finish(ctx, req.ID, "staff-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycle_FinishFromPendingIsInvalid(t *testing.T) {
	svc, _, _ := newLifecycleFixture()
	req := createPending(t, svc, model.PriorityMedium)

	_, err := svc.Finish(context.Background(), req.ID, "staff-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLifecycle_NonAssigneeCannotAdvance(t *testing.T) {
	svc, _, _ := newLifecycleFixture()
	req := createPending(t, svc, model.PriorityMedium)
	ctx := context.Background()

	_, err := svc.Claim(ctx, req.ID, "staff-1")
	require.NoError(t, err)

	_, err = svc.Depart(ctx, req.ID, "staff-2")
	assert.ErrorIs(t, err, ErrNotAssignee)
}

func TestLifecycle_CompletedIsTerminal(t *testing.T) {
	svc, _, _ := newLifecycleFixture()
	req := createPending(t, svc, model.PriorityMedium)
	ctx := context.Background()

	_, err := svc.Claim(ctx, req.ID, "staff-1")
	require.NoError(t, err)
	_, err = svc.Depart(ctx, req.ID, "staff-1")
	require.NoError(t, err)
	_, err = svc.StartWork(ctx, req.ID, "staff-1")
	require.NoError(t, err)
	_, err = svc.Finish(ctx, req.ID, "staff-1")
	require.NoError(t, err)

	_, err = svc.Finish(ctx, req.ID, "staff-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Claim(ctx, req.ID, "staff-2")
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestGetRequest_NotFound(t *testing.T) {
	svc, _, _ := newLifecycleFixture()

	_, err := svc.GetRequest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
