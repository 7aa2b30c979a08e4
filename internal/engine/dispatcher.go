package engine

import (
	"context"
	"fmt"
	"time"

	"opsflow/internal/model"
	"opsflow/internal/rules"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// DefaultActionTimeout bounds each collaborator call so one slow adapter
// cannot stall the rest of a rule's action list.
const DefaultActionTimeout = 5 * time.Second

// Dispatcher reacts to trigger events: it looks up candidate rules,
// filters them through the condition evaluator and executes each matched
// rule's actions in order, recording every outcome in the execution log.
// Adapter failures are isolated per action and never reach the caller.
type Dispatcher struct {
	registry      *rules.Registry
	adapters      Adapters
	execLog       ExecutionLog
	log           *zap.Logger
	actionTimeout time.Duration
}

func NewDispatcher(registry *rules.Registry, adapters Adapters, execLog ExecutionLog, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:      registry,
		adapters:      adapters,
		execLog:       execLog,
		log:           log,
		actionTimeout: DefaultActionTimeout,
	}
}

// SetActionTimeout overrides the per-action timeout
func (d *Dispatcher) SetActionTimeout(timeout time.Duration) {
	d.actionTimeout = timeout
}

// Dispatch runs every matched rule against the event and returns the
// resulting executions. Zero matches is a normal, silent outcome. Once
// dispatch begins for a matched rule it runs to completion; there is no
// cancellation of an in-flight execution.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.TriggerEvent) []*model.WorkflowExecution {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	candidates := d.registry.RulesFor(event.Type)

	var executions []*model.WorkflowExecution
	for _, rule := range candidates {
		if !rules.Matches(rule.Conditions, event.Context) {
			continue
		}
		executions = append(executions, d.execute(ctx, rule, event))
	}

	if len(executions) == 0 {
		d.log.Debug("No rules matched event", zap.String("trigger", string(event.Type)))
	}
	return executions
}

func (d *Dispatcher) execute(ctx context.Context, rule rules.WorkflowRule, event model.TriggerEvent) *model.WorkflowExecution {
	// An execution, once begun, runs to completion. Detach from the
	// caller's cancellation (an HTTP client disconnecting mid-dispatch
	// must not fail the remaining actions); the per-action timeout is
	// the only bound on adapter calls.
	ctx = context.WithoutCancel(ctx)

	exec := &model.WorkflowExecution{
		ID:          ulid.Make().String(),
		RuleID:      rule.ID,
		TriggerType: event.Type,
		Context:     event.Context,
		Status:      model.ExecutionRunning,
		StartedAt:   time.Now(),
	}

	if err := d.execLog.Record(ctx, exec); err != nil {
		d.log.Warn("Failed to record execution start",
			zap.String("execution_id", exec.ID),
			zap.Error(err),
		)
	}

	for _, action := range rule.Actions {
		result := model.ActionResult{
			ActionType: action.Type,
			Target:     action.Target,
			Status:     model.ActionSuccess,
			Timestamp:  time.Now(),
		}

		if err := d.runAction(ctx, action, event); err != nil {
			result.Status = model.ActionFailed
			result.Error = err.Error()
			d.log.Warn("Workflow action failed",
				zap.String("execution_id", exec.ID),
				zap.String("rule_id", rule.ID),
				zap.String("action", string(action.Type)),
				zap.String("target", action.Target),
				zap.Error(err),
			)
		}

		// One action's failure never aborts the remaining actions.
		exec.Log = append(exec.Log, result)
	}

	now := time.Now()
	exec.Status = model.ExecutionCompleted
	exec.CompletedAt = &now

	if err := d.execLog.Record(ctx, exec); err != nil {
		d.log.Error("Failed to record execution",
			zap.String("execution_id", exec.ID),
			zap.Error(err),
		)
	}

	d.log.Info("Workflow execution completed",
		zap.String("execution_id", exec.ID),
		zap.String("rule_id", rule.ID),
		zap.Int("actions", len(exec.Log)),
	)
	return exec
}

// runAction invokes exactly one collaborator call under the per-action
// timeout. Panics inside an adapter are converted to failed results so a
// misbehaving collaborator cannot crash the dispatch pass.
func (d *Dispatcher) runAction(ctx context.Context, action model.WorkflowAction, event model.TriggerEvent) (err error) {
	actionCtx, cancel := context.WithTimeout(ctx, d.actionTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()

	switch action.Type {
	case model.ActionNotify:
		if d.adapters.Notifier == nil {
			return fmt.Errorf("no notification sender configured")
		}
		title, body := notificationContent(action, event)
		return d.adapters.Notifier.Send(actionCtx, recipients(action), title, body)

	case model.ActionEscalate:
		if d.adapters.Escalator == nil {
			return fmt.Errorf("no escalation logger configured")
		}
		reason, _ := action.Params["reason"].(string)
		if reason == "" {
			reason = string(event.Type)
		}
		return d.adapters.Escalator.Log(actionCtx, contextString(event, "request_id"), reason, action.Params)

	case model.ActionCreateDerivedRequest:
		if d.adapters.Deriver == nil {
			return fmt.Errorf("no derived request creator configured")
		}
		title, _ := action.Params["title"].(string)
		location, _ := action.Params["location"].(string)
		priority, _ := action.Params["priority"].(string)
		_, err := d.adapters.Deriver.Create(actionCtx, DerivedRequestSpec{
			Title:    title,
			Location: location,
			Priority: model.Priority(priority),
			ParentID: contextString(event, "request_id"),
			Params:   action.Params,
		})
		return err

	case model.ActionAllocateResource, model.ActionAutoSchedule:
		if d.adapters.Allocator == nil {
			return fmt.Errorf("no resource allocator configured")
		}
		return d.adapters.Allocator.Allocate(actionCtx, AllocationSpec{
			Resource:  action.Target,
			RequestID: contextString(event, "request_id"),
			Params:    action.Params,
		})
	}

	return fmt.Errorf("unknown action type: %s", action.Type)
}

func recipients(action model.WorkflowAction) []string {
	raw, _ := action.Params["recipients"].([]interface{})
	if len(raw) == 0 {
		return []string{action.Target}
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{action.Target}
	}
	return out
}

func notificationContent(action model.WorkflowAction, event model.TriggerEvent) (string, string) {
	title, _ := action.Params["title"].(string)
	body, _ := action.Params["body"].(string)
	if title == "" {
		title = fmt.Sprintf("Workflow event: %s", event.Type)
	}
	if body == "" && contextString(event, "request_id") != "" {
		body = fmt.Sprintf("Request %s triggered %s", contextString(event, "request_id"), event.Type)
	}
	return title, body
}

func contextString(event model.TriggerEvent, key string) string {
	v, ok := event.Context[key]
	if !ok || v.Kind != model.KindString {
		return ""
	}
	return v.Str
}
