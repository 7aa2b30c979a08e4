package jobs

import (
	"context"
	"fmt"
	"time"

	"opsflow/internal/db"
	"opsflow/internal/model"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sink receives the trigger events SLA timers inject back into the
// workflow engine.
type Sink interface {
	Emit(ctx context.Context, event model.TriggerEvent)
}

type JobServer struct {
	server *asynq.Server
	client *asynq.Client
	db     *db.Pool
	sink   Sink
	log    *zap.Logger
}

func NewJobServer(redisAddr string, dbPool *db.Pool, sink Sink, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server: server,
		client: client,
		db:     dbPool,
		sink:   sink,
		log:    log,
	}, client
}

func (js *JobServer) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc("sla:warn", js.handleSLAWarning)
	mux.HandleFunc("sla:breach", js.handleSLABreach)

	return js.server.Start(mux)
}

func (js *JobServer) Stop() {
	js.server.Shutdown()
	js.client.Close()
}

// Job handlers. Deadlines can move (extension approvals), so each timer
// re-checks the row before firing and skips when it no longer applies.

func (js *JobServer) handleSLAWarning(ctx context.Context, t *asynq.Task) error {
	requestID := string(t.Payload())

	req, err := js.db.Queries.GetRequestByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to get request: %w", err)
	}

	if req.Status == string(model.StatusCompleted) {
		return nil
	}
	// An approved extension may have pushed the deadline past this timer.
	if time.Until(req.SLADeadline) > time.Hour {
		return nil
	}

	js.emit(ctx, model.TriggerSLAWarning, req)
	js.log.Info("SLA warning emitted", zap.String("request_id", requestID))
	return nil
}

func (js *JobServer) handleSLABreach(ctx context.Context, t *asynq.Task) error {
	requestID := string(t.Payload())

	req, err := js.db.Queries.GetRequestByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to get request: %w", err)
	}

	if req.Status == string(model.StatusCompleted) {
		return nil
	}
	if req.SLADeadline.After(time.Now()) {
		return nil
	}

	js.emit(ctx, model.TriggerSLABreach, req)
	js.log.Info("SLA breach emitted", zap.String("request_id", requestID))
	return nil
}

func (js *JobServer) emit(ctx context.Context, trigger model.TriggerType, req db.Request) {
	evtContext := map[string]model.Value{
		"request_id": model.String(req.ID),
		"status":     model.String(req.Status),
		"priority":   model.String(req.Priority),
		"location":   model.String(req.Location),
	}
	if req.AssignedTo != nil {
		evtContext["assigned_to"] = model.String(*req.AssignedTo)
	}

	js.sink.Emit(ctx, model.TriggerEvent{
		Type:       trigger,
		Context:    evtContext,
		OccurredAt: time.Now(),
	})
}

// Schedule jobs

func ScheduleSLAWarning(client *asynq.Client, requestID string, deadline time.Time) error {
	// Warn 1 hour before the deadline
	warnAt := deadline.Add(-1 * time.Hour)
	if warnAt.Before(time.Now()) {
		return nil
	}

	task := asynq.NewTask("sla:warn", []byte(requestID))
	_, err := client.Enqueue(task, asynq.ProcessIn(time.Until(warnAt)))
	return err
}

func ScheduleSLABreachCheck(client *asynq.Client, requestID string, deadline time.Time) error {
	if deadline.Before(time.Now()) {
		return nil
	}

	task := asynq.NewTask("sla:breach", []byte(requestID), asynq.Queue("critical"))
	_, err := client.Enqueue(task, asynq.ProcessIn(time.Until(deadline)))
	return err
}
