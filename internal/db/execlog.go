package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"opsflow/internal/engine"
	"opsflow/internal/model"

	"github.com/jackc/pgx/v5"
)

// ExecLog is the postgres-backed execution log. Executions are upserted
// (a run is recorded once at start and once at completion); action
// results are insert-only, keyed by list position.
type ExecLog struct {
	q *Queries
}

func NewExecLog(q *Queries) *ExecLog {
	return &ExecLog{q: q}
}

var _ engine.ExecutionLog = (*ExecLog)(nil)

func (l *ExecLog) Record(ctx context.Context, exec *model.WorkflowExecution) error {
	contextJSON, err := json.Marshal(exec.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger context: %w", err)
	}

	tx, err := l.q.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO workflow_executions (id, rule_id, trigger_type, trigger_context, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at`,
		exec.ID, exec.RuleID, string(exec.TriggerType), contextJSON,
		string(exec.Status), exec.StartedAt, exec.CompletedAt,
	)
	if err != nil {
		return err
	}

	for i, result := range exec.Log {
		var errText *string
		if result.Error != "" {
			errText = &result.Error
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO action_results (execution_id, position, action_type, target, status, error, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (execution_id, position) DO NOTHING`,
			exec.ID, i, string(result.ActionType), result.Target, string(result.Status), errText, result.Timestamp,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (l *ExecLog) Get(ctx context.Context, id string) (*model.WorkflowExecution, error) {
	exec, err := l.scanExecution(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engine.ErrExecutionNotFound
		}
		return nil, err
	}
	if err := l.loadResults(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

func (l *ExecLog) List(ctx context.Context, filter engine.ExecutionFilter) ([]*model.WorkflowExecution, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := l.q.Pool.Query(ctx,
		`SELECT id, rule_id, trigger_type, trigger_context, status, started_at, completed_at
		FROM workflow_executions
		WHERE ($1 = '' OR rule_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3::timestamptz IS NULL OR started_at >= $3)
		ORDER BY started_at DESC
		LIMIT $4`,
		filter.RuleID, string(filter.Status), nullableTime(filter.Since), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.WorkflowExecution
	for rows.Next() {
		exec, err := scanExecutionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, exec := range out {
		if err := l.loadResults(ctx, exec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l *ExecLog) FailedActionsSince(ctx context.Context, since time.Time) ([]engine.FailedAction, error) {
	rows, err := l.q.Pool.Query(ctx,
		`SELECT ar.execution_id, we.rule_id, ar.action_type, ar.target, ar.error, ar.created_at
		FROM action_results ar
		JOIN workflow_executions we ON we.id = ar.execution_id
		WHERE ar.status = 'FAILED' AND ar.created_at >= $1
		ORDER BY ar.created_at DESC`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []engine.FailedAction
	for rows.Next() {
		var fa engine.FailedAction
		var actionType, target string
		var errText *string
		var createdAt time.Time
		if err := rows.Scan(&fa.ExecutionID, &fa.RuleID, &actionType, &target, &errText, &createdAt); err != nil {
			return nil, err
		}
		fa.Result = model.ActionResult{
			ActionType: model.ActionType(actionType),
			Target:     target,
			Status:     model.ActionFailed,
			Timestamp:  createdAt,
		}
		if errText != nil {
			fa.Result.Error = *errText
		}
		failed = append(failed, fa)
	}
	return failed, rows.Err()
}

func (l *ExecLog) scanExecution(ctx context.Context, id string) (*model.WorkflowExecution, error) {
	row := l.q.Pool.QueryRow(ctx,
		`SELECT id, rule_id, trigger_type, trigger_context, status, started_at, completed_at
		FROM workflow_executions WHERE id = $1`,
		id,
	)
	return scanExecutionRow(row)
}

func scanExecutionRow(row pgx.Row) (*model.WorkflowExecution, error) {
	var exec model.WorkflowExecution
	var triggerType, status string
	var contextJSON []byte
	if err := row.Scan(&exec.ID, &exec.RuleID, &triggerType, &contextJSON, &status, &exec.StartedAt, &exec.CompletedAt); err != nil {
		return nil, err
	}
	exec.TriggerType = model.TriggerType(triggerType)
	exec.Status = model.ExecutionStatus(status)
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &exec.Context); err != nil {
			return nil, fmt.Errorf("failed to decode trigger context: %w", err)
		}
	}
	return &exec, nil
}

func (l *ExecLog) loadResults(ctx context.Context, exec *model.WorkflowExecution) error {
	rows, err := l.q.Pool.Query(ctx,
		`SELECT action_type, target, status, error, created_at
		FROM action_results WHERE execution_id = $1
		ORDER BY position ASC`,
		exec.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var result model.ActionResult
		var actionType, status string
		var errText *string
		if err := rows.Scan(&actionType, &result.Target, &status, &errText, &result.Timestamp); err != nil {
			return err
		}
		result.ActionType = model.ActionType(actionType)
		result.Status = model.ActionOutcome(status)
		if errText != nil {
			result.Error = *errText
		}
		exec.Log = append(exec.Log, result)
	}
	return rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
