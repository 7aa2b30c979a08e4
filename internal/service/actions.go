package service

import (
	"context"
	"time"

	"opsflow/internal/engine"

	"go.uber.org/zap"
)

// Live implementations of the workflow engine's collaborator contracts.
// Each one is deliberately thin: the dispatcher already owns timeouts,
// failure isolation, and result recording.

// BusNotifier delivers notifications over the pub/sub bus, one publish
// per recipient staff channel.
type BusNotifier struct {
	bus EventBus
	log *zap.Logger
}

func NewBusNotifier(bus EventBus, log *zap.Logger) *BusNotifier {
	return &BusNotifier{bus: bus, log: log}
}

func (n *BusNotifier) Send(ctx context.Context, recipients []string, title, body string) error {
	event := map[string]interface{}{
		"type":      "notification",
		"title":     title,
		"body":      body,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for _, recipient := range recipients {
		if err := n.bus.PublishStaff(recipient, event); err != nil {
			return err
		}
	}
	return nil
}

// OpsEscalator records escalations on the ops channel so supervisors
// see them live, and in the structured log so they survive restarts.
type OpsEscalator struct {
	bus EventBus
	log *zap.Logger
}

func NewOpsEscalator(bus EventBus, log *zap.Logger) *OpsEscalator {
	return &OpsEscalator{bus: bus, log: log}
}

func (e *OpsEscalator) Log(ctx context.Context, requestID, reason string, metadata map[string]interface{}) error {
	e.log.Warn("Request escalated",
		zap.String("requestID", requestID),
		zap.String("reason", reason),
		zap.Any("metadata", metadata),
	)
	return e.bus.PublishOps(map[string]interface{}{
		"type":      "escalation",
		"requestId": requestID,
		"reason":    reason,
		"metadata":  metadata,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RequestDeriver creates follow-up maintenance requests through the
// lifecycle service, so derived requests get SLA deadlines and trigger
// events like any other.
type RequestDeriver struct {
	lifecycle *LifecycleService
}

func NewRequestDeriver(lifecycle *LifecycleService) *RequestDeriver {
	return &RequestDeriver{lifecycle: lifecycle}
}

func (d *RequestDeriver) Create(ctx context.Context, spec engine.DerivedRequestSpec) (string, error) {
	req, err := d.lifecycle.CreateRequest(ctx, CreateRequestInput{
		Title:     spec.Title,
		Location:  spec.Location,
		Priority:  spec.Priority,
		CreatedBy: "workflow-engine",
	})
	if err != nil {
		return "", err
	}
	return req.ID, nil
}

// OpsAllocator announces resource and schedule allocations on the ops
// channel. Actual calendar/inventory systems subscribe there; this
// process only brokers the request.
type OpsAllocator struct {
	bus EventBus
	log *zap.Logger
}

func NewOpsAllocator(bus EventBus, log *zap.Logger) *OpsAllocator {
	return &OpsAllocator{bus: bus, log: log}
}

func (a *OpsAllocator) Allocate(ctx context.Context, spec engine.AllocationSpec) error {
	a.log.Info("Resource allocation requested",
		zap.String("resource", spec.Resource),
		zap.String("requestID", spec.RequestID),
	)
	return a.bus.PublishOps(map[string]interface{}{
		"type":      "allocation",
		"resource":  spec.Resource,
		"requestId": spec.RequestID,
		"params":    spec.Params,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
