package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsflow/internal/db"
	"opsflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
)

// EventBus publishes domain events to interested live subscribers
type EventBus interface {
	PublishRequest(requestID string, event map[string]interface{}) error
	PublishStaff(staffID string, event map[string]interface{}) error
	PublishOps(event map[string]interface{}) error
}

// EventSink feeds trigger events back into the workflow engine. Every
// successful lifecycle transition is itself eligible to fire rules.
type EventSink interface {
	Emit(ctx context.Context, event model.TriggerEvent)
}

// LifecycleService owns the maintenance-request state machine. It is the
// single writer for MaintenanceRequest rows; all status changes go
// through its operations.
type LifecycleService struct {
	store     Store
	bus       EventBus
	sink      EventSink
	jobClient JobClient
}

func NewLifecycleService(store Store, bus EventBus, sink EventSink) *LifecycleService {
	return &LifecycleService{
		store: store,
		bus:   bus,
		sink:  sink,
	}
}

// SetJobClient sets the job client for scheduling SLA timers
func (s *LifecycleService) SetJobClient(client JobClient) {
	s.jobClient = client
}

type CreateRequestInput struct {
	Title       string         `json:"title"`
	Location    string         `json:"location,omitempty"`
	Priority    model.Priority `json:"priority"`
	SLADeadline *time.Time     `json:"slaDeadline,omitempty"`
	CreatedBy   string         `json:"-"`
}

// slaWindow returns the default resolution window for a priority,
// applied when the caller does not set an explicit deadline.
func slaWindow(p model.Priority) time.Duration {
	switch p {
	case model.PriorityCritical:
		return 4 * time.Hour
	case model.PriorityHigh:
		return 8 * time.Hour
	case model.PriorityMedium:
		return 24 * time.Hour
	}
	return 72 * time.Hour
}

func (s *LifecycleService) CreateRequest(ctx context.Context, input CreateRequestInput) (*model.MaintenanceRequest, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}

	deadline := time.Now().Add(slaWindow(input.Priority))
	if input.SLADeadline != nil {
		deadline = *input.SLADeadline
	}

	requestID := ulid.Make().String()
	req, err := s.store.CreateRequest(ctx, db.CreateRequestParams{
		ID:          requestID,
		CreatedBy:   input.CreatedBy,
		Title:       input.Title,
		Location:    input.Location,
		Priority:    string(input.Priority),
		SLADeadline: deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	_ = s.bus.PublishRequest(requestID, map[string]interface{}{
		"type":      "request.created",
		"requestId": requestID,
	})

	if s.jobClient != nil {
		_ = s.jobClient.ScheduleSLAWarning(requestID, req.SLADeadline)
		_ = s.jobClient.ScheduleSLABreachCheck(requestID, req.SLADeadline)
	}

	s.emit(ctx, model.TriggerRequestCreated, req, nil)

	return dbRequestToModel(req), nil
}

func (s *LifecycleService) GetRequest(ctx context.Context, id string) (*model.MaintenanceRequest, error) {
	req, err := s.store.GetRequestByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return dbRequestToModel(req), nil
}

// Claim atomically takes ownership of a pending request for staffID.
// Exactly one of any set of concurrent claimers wins; the rest get
// ErrAlreadyClaimed.
func (s *LifecycleService) Claim(ctx context.Context, id, staffID string) (*model.MaintenanceRequest, error) {
	if err := s.store.ClaimRequest(ctx, id, staffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.store.GetRequestByID(ctx, id); getErr != nil {
				return nil, ErrNotFound
			}
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim request: %w", err)
	}

	req, err := s.store.GetRequestByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load request after claim: %w", err)
	}

	_ = s.bus.PublishRequest(id, map[string]interface{}{
		"type":      "request.claimed",
		"requestId": id,
		"staffId":   staffID,
	})
	_ = s.bus.PublishStaff(staffID, map[string]interface{}{
		"type":      "request.claimed",
		"requestId": id,
	})

	prev := model.StatusPending
	s.emit(ctx, model.TriggerStatusChanged, req, &prev)

	return dbRequestToModel(req), nil
}

// Depart moves an assigned request to EN_ROUTE
func (s *LifecycleService) Depart(ctx context.Context, id, staffID string) (*model.MaintenanceRequest, error) {
	return s.advance(ctx, id, staffID, model.StatusAssigned, s.store.MarkEnRoute)
}

// StartWork moves an en-route request to IN_PROGRESS
func (s *LifecycleService) StartWork(ctx context.Context, id, staffID string) (*model.MaintenanceRequest, error) {
	return s.advance(ctx, id, staffID, model.StatusEnRoute, s.store.MarkWorkStarted)
}

// Finish moves an in-progress request to COMPLETED
func (s *LifecycleService) Finish(ctx context.Context, id, staffID string) (*model.MaintenanceRequest, error) {
	return s.advance(ctx, id, staffID, model.StatusInProgress, s.store.MarkCompleted)
}

func (s *LifecycleService) advance(ctx context.Context, id, staffID string, from model.RequestStatus, update func(context.Context, string, string) error) (*model.MaintenanceRequest, error) {
	if err := update(ctx, id, staffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.transitionFailure(ctx, id, staffID)
		}
		return nil, fmt.Errorf("failed to update request: %w", err)
	}

	req, err := s.store.GetRequestByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load request after transition: %w", err)
	}

	_ = s.bus.PublishRequest(id, map[string]interface{}{
		"type":      "request.status_changed",
		"requestId": id,
		"status":    req.Status,
	})
	if req.Status == string(model.StatusCompleted) {
		_ = s.bus.PublishStaff(req.CreatedBy, map[string]interface{}{
			"type":      "request.completed",
			"requestId": id,
		})
	}

	s.emit(ctx, model.TriggerStatusChanged, req, &from)

	return dbRequestToModel(req), nil
}

// transitionFailure explains a zero-row conditional update: the request
// is missing, held by someone else, or not in the preceding state.
func (s *LifecycleService) transitionFailure(ctx context.Context, id, staffID string) error {
	req, err := s.store.GetRequestByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if req.AssignedTo != nil && *req.AssignedTo != staffID {
		return ErrNotAssignee
	}
	return ErrInvalidTransition
}

func (s *LifecycleService) emit(ctx context.Context, trigger model.TriggerType, req db.Request, previous *model.RequestStatus) {
	if s.sink == nil {
		return
	}

	evtContext := map[string]model.Value{
		"request_id": model.String(req.ID),
		"status":     model.String(req.Status),
		"priority":   model.String(req.Priority),
		"location":   model.String(req.Location),
	}
	if previous != nil {
		evtContext["previous_status"] = model.String(string(*previous))
	}
	if req.AssignedTo != nil {
		evtContext["assigned_to"] = model.String(*req.AssignedTo)
	}

	s.sink.Emit(ctx, model.TriggerEvent{
		Type:       trigger,
		Context:    evtContext,
		OccurredAt: time.Now(),
	})
}

func dbRequestToModel(r db.Request) *model.MaintenanceRequest {
	return &model.MaintenanceRequest{
		ID:            r.ID,
		CreatedBy:     r.CreatedBy,
		Title:         r.Title,
		Location:      r.Location,
		Status:        model.RequestStatus(r.Status),
		AssignedTo:    r.AssignedTo,
		Priority:      model.Priority(r.Priority),
		SLADeadline:   r.SLADeadline,
		CreatedAt:     r.CreatedAt,
		AssignedAt:    r.AssignedAt,
		EnRouteAt:     r.EnRouteAt,
		WorkStartedAt: r.WorkStartedAt,
		CompletedAt:   r.CompletedAt,
	}
}
