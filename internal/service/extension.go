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
	"go.uber.org/zap"
)

// ExtensionService runs the time-extension approval sub-flow: a
// two-party handshake between the assignee and a reviewer that only ever
// touches sla_deadline, never the request status.
type ExtensionService struct {
	store     Store
	bus       EventBus
	sink      EventSink
	jobClient JobClient
	log       *zap.Logger
}

func NewExtensionService(store Store, bus EventBus, sink EventSink, log *zap.Logger) *ExtensionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExtensionService{
		store: store,
		bus:   bus,
		sink:  sink,
		log:   log,
	}
}

// SetJobClient sets the job client used to reschedule SLA timers after
// an approval moves the deadline.
func (s *ExtensionService) SetJobClient(client JobClient) {
	s.jobClient = client
}

// RequestExtension files a pending extension for a request. At most one
// extension may be pending per request at a time; the pre-check gives
// callers a clean error and a partial unique index closes the race.
func (s *ExtensionService) RequestExtension(ctx context.Context, requestID, staffID string, additionalHours int, reason string) (*model.TimeExtensionRequest, error) {
	if additionalHours <= 0 {
		return nil, fmt.Errorf("additional hours must be positive")
	}

	if _, err := s.store.GetRequestByID(ctx, requestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load request: %w", err)
	}

	pending, err := s.store.HasPendingExtension(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending extensions: %w", err)
	}
	if pending {
		return nil, ErrExtensionAlreadyPending
	}

	ext, err := s.store.CreateExtension(ctx, db.CreateExtensionParams{
		ID:              ulid.Make().String(),
		RequestID:       requestID,
		RequestedBy:     staffID,
		AdditionalHours: additionalHours,
		Reason:          reason,
	})
	if err != nil {
		if errors.Is(err, db.ErrPendingExtensionExists) {
			return nil, ErrExtensionAlreadyPending
		}
		return nil, fmt.Errorf("failed to create extension: %w", err)
	}

	_ = s.bus.PublishRequest(requestID, map[string]interface{}{
		"type":        "extension.requested",
		"requestId":   requestID,
		"extensionId": ext.ID,
		"hours":       additionalHours,
	})
	_ = s.bus.PublishOps(map[string]interface{}{
		"type":        "extension.requested",
		"requestId":   requestID,
		"extensionId": ext.ID,
	})

	return dbExtensionToModel(ext), nil
}

// ReviewExtension settles a pending extension. Approval extends the
// owning request's SLA deadline by the requested hours and reschedules
// the SLA timers; rejection leaves the deadline untouched.
func (s *ExtensionService) ReviewExtension(ctx context.Context, extensionID, reviewerID string, approve bool, notes *string) (*model.TimeExtensionRequest, error) {
	ext, err := s.store.ReviewExtension(ctx, extensionID, reviewerID, approve, notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.store.GetExtensionByID(ctx, extensionID); getErr != nil {
				return nil, ErrNotFound
			}
			return nil, ErrExtensionNotPending
		}
		return nil, fmt.Errorf("failed to review extension: %w", err)
	}

	outcome := "extension.rejected"
	trigger := model.TriggerExtensionRejected
	if approve {
		outcome = "extension.approved"
		trigger = model.TriggerExtensionApproved
	}

	_ = s.bus.PublishRequest(ext.RequestID, map[string]interface{}{
		"type":        outcome,
		"requestId":   ext.RequestID,
		"extensionId": ext.ID,
	})
	_ = s.bus.PublishStaff(ext.RequestedBy, map[string]interface{}{
		"type":        outcome,
		"extensionId": ext.ID,
	})

	req, err := s.store.GetRequestByID(ctx, ext.RequestID)
	if err != nil {
		// The review itself is committed; only the follow-up trigger
		// event and timer reschedule are lost. That must leave a trace.
		s.log.Error("Failed to load request after extension review",
			zap.String("extension_id", ext.ID),
			zap.String("request_id", ext.RequestID),
			zap.Error(err),
		)
	} else {
		if approve && s.jobClient != nil {
			_ = s.jobClient.ScheduleSLAWarning(req.ID, req.SLADeadline)
			_ = s.jobClient.ScheduleSLABreachCheck(req.ID, req.SLADeadline)
		}
		if s.sink != nil {
			s.sink.Emit(ctx, model.TriggerEvent{
				Type: trigger,
				Context: map[string]model.Value{
					"request_id":       model.String(ext.RequestID),
					"extension_id":     model.String(ext.ID),
					"additional_hours": model.Number(float64(ext.AdditionalHours)),
					"requested_by":     model.String(ext.RequestedBy),
					"priority":         model.String(req.Priority),
				},
				OccurredAt: time.Now(),
			})
		}
	}

	return dbExtensionToModel(ext), nil
}

// GetExtension loads one extension by id
func (s *ExtensionService) GetExtension(ctx context.Context, id string) (*model.TimeExtensionRequest, error) {
	ext, err := s.store.GetExtensionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load extension: %w", err)
	}
	return dbExtensionToModel(ext), nil
}

func dbExtensionToModel(e db.Extension) *model.TimeExtensionRequest {
	return &model.TimeExtensionRequest{
		ID:              e.ID,
		RequestID:       e.RequestID,
		RequestedBy:     e.RequestedBy,
		AdditionalHours: e.AdditionalHours,
		Reason:          e.Reason,
		Status:          model.ExtensionStatus(e.Status),
		ReviewedBy:      e.ReviewedBy,
		ReviewNotes:     e.ReviewNotes,
		CreatedAt:       e.CreatedAt,
		ReviewedAt:      e.ReviewedAt,
	}
}
