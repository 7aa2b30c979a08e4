package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"opsflow/internal/model"
)

// ErrExecutionNotFound is returned by Get for unknown execution ids
var ErrExecutionNotFound = errors.New("execution not found")

// FailedAction is one failed action result joined with its execution,
// for operator-driven review and manual retry.
type FailedAction struct {
	ExecutionID string             `json:"executionId"`
	RuleID      string             `json:"ruleId"`
	Result      model.ActionResult `json:"result"`
}

// ExecutionFilter narrows ExecutionLog.List results
type ExecutionFilter struct {
	RuleID string
	Status model.ExecutionStatus
	Since  time.Time
	Limit  int
}

// ExecutionLog is the append-only audit record of workflow runs. Record
// persists a finished (or just-started) execution snapshot; nothing ever
// removes or rewrites entries.
type ExecutionLog interface {
	Record(ctx context.Context, exec *model.WorkflowExecution) error
	Get(ctx context.Context, id string) (*model.WorkflowExecution, error)
	List(ctx context.Context, filter ExecutionFilter) ([]*model.WorkflowExecution, error)
	FailedActionsSince(ctx context.Context, since time.Time) ([]FailedAction, error)
}

// MemoryLog is an in-process ExecutionLog. It backs tests and
// single-node deployments that do not need durable audit history.
type MemoryLog struct {
	mu    sync.RWMutex
	execs map[string]*model.WorkflowExecution
	order []string
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{execs: make(map[string]*model.WorkflowExecution)}
}

func (m *MemoryLog) Record(ctx context.Context, exec *model.WorkflowExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.execs[exec.ID]; !exists {
		m.order = append(m.order, exec.ID)
	}
	snapshot := *exec
	snapshot.Log = append([]model.ActionResult(nil), exec.Log...)
	m.execs[exec.ID] = &snapshot
	return nil
}

func (m *MemoryLog) Get(ctx context.Context, id string) (*model.WorkflowExecution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exec, ok := m.execs[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	snapshot := *exec
	snapshot.Log = append([]model.ActionResult(nil), exec.Log...)
	return &snapshot, nil
}

func (m *MemoryLog) List(ctx context.Context, filter ExecutionFilter) ([]*model.WorkflowExecution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.WorkflowExecution
	for _, id := range m.order {
		exec := m.execs[id]
		if filter.RuleID != "" && exec.RuleID != filter.RuleID {
			continue
		}
		if filter.Status != "" && exec.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && exec.StartedAt.Before(filter.Since) {
			continue
		}
		snapshot := *exec
		snapshot.Log = append([]model.ActionResult(nil), exec.Log...)
		out = append(out, &snapshot)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryLog) FailedActionsSince(ctx context.Context, since time.Time) ([]FailedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var failed []FailedAction
	for _, id := range m.order {
		exec := m.execs[id]
		for _, result := range exec.Log {
			if result.Status != model.ActionFailed {
				continue
			}
			if result.Timestamp.Before(since) {
				continue
			}
			failed = append(failed, FailedAction{
				ExecutionID: exec.ID,
				RuleID:      exec.RuleID,
				Result:      result,
			})
		}
	}
	return failed, nil
}
