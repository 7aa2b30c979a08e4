package service

import (
	"context"
	"sync"
	"time"

	"opsflow/internal/db"
	"opsflow/internal/model"

	"github.com/jackc/pgx/v5"
)

// memStore is an in-memory Store with the same compare-and-swap contract
// as the pgx-backed queries: conditional updates miss with pgx.ErrNoRows
// and at most one pending extension exists per request.
type memStore struct {
	mu         sync.Mutex
	requests   map[string]*db.Request
	extensions map[string]*db.Extension
}

func newMemStore() *memStore {
	return &memStore{
		requests:   make(map[string]*db.Request),
		extensions: make(map[string]*db.Extension),
	}
}

func (m *memStore) CreateRequest(ctx context.Context, params db.CreateRequestParams) (db.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req := db.Request{
		ID:          params.ID,
		CreatedBy:   params.CreatedBy,
		Title:       params.Title,
		Location:    params.Location,
		Status:      string(model.StatusPending),
		Priority:    params.Priority,
		SLADeadline: params.SLADeadline,
		CreatedAt:   time.Now(),
	}
	m.requests[req.ID] = &req
	return req, nil
}

func (m *memStore) GetRequestByID(ctx context.Context, id string) (db.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return db.Request{}, pgx.ErrNoRows
	}
	return *req, nil
}

func (m *memStore) ClaimRequest(ctx context.Context, id, staffID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != string(model.StatusPending) || req.AssignedTo != nil {
		return pgx.ErrNoRows
	}
	now := time.Now()
	req.Status = string(model.StatusAssigned)
	req.AssignedTo = &staffID
	req.AssignedAt = &now
	return nil
}

func (m *memStore) transition(id, staffID, from, to string, stamp func(*db.Request, time.Time)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != from || req.AssignedTo == nil || *req.AssignedTo != staffID {
		return pgx.ErrNoRows
	}
	now := time.Now()
	req.Status = to
	stamp(req, now)
	return nil
}

func (m *memStore) MarkEnRoute(ctx context.Context, id, staffID string) error {
	return m.transition(id, staffID, string(model.StatusAssigned), string(model.StatusEnRoute),
		func(r *db.Request, t time.Time) { r.EnRouteAt = &t })
}

func (m *memStore) MarkWorkStarted(ctx context.Context, id, staffID string) error {
	return m.transition(id, staffID, string(model.StatusEnRoute), string(model.StatusInProgress),
		func(r *db.Request, t time.Time) { r.WorkStartedAt = &t })
}

func (m *memStore) MarkCompleted(ctx context.Context, id, staffID string) error {
	return m.transition(id, staffID, string(model.StatusInProgress), string(model.StatusCompleted),
		func(r *db.Request, t time.Time) { r.CompletedAt = &t })
}

func (m *memStore) CreateExtension(ctx context.Context, params db.CreateExtensionParams) (db.Extension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.extensions {
		if e.RequestID == params.RequestID && e.Status == string(model.ExtensionPending) {
			return db.Extension{}, db.ErrPendingExtensionExists
		}
	}
	ext := db.Extension{
		ID:              params.ID,
		RequestID:       params.RequestID,
		RequestedBy:     params.RequestedBy,
		AdditionalHours: params.AdditionalHours,
		Reason:          params.Reason,
		Status:          string(model.ExtensionPending),
		CreatedAt:       time.Now(),
	}
	m.extensions[ext.ID] = &ext
	return ext, nil
}

func (m *memStore) GetExtensionByID(ctx context.Context, id string) (db.Extension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ext, ok := m.extensions[id]
	if !ok {
		return db.Extension{}, pgx.ErrNoRows
	}
	return *ext, nil
}

func (m *memStore) HasPendingExtension(ctx context.Context, requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.extensions {
		if e.RequestID == requestID && e.Status == string(model.ExtensionPending) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ReviewExtension(ctx context.Context, id, reviewerID string, approve bool, notes *string) (db.Extension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ext, ok := m.extensions[id]
	if !ok || ext.Status != string(model.ExtensionPending) {
		return db.Extension{}, pgx.ErrNoRows
	}
	now := time.Now()
	if approve {
		ext.Status = string(model.ExtensionApproved)
		if req, ok := m.requests[ext.RequestID]; ok {
			req.SLADeadline = req.SLADeadline.Add(time.Duration(ext.AdditionalHours) * time.Hour)
		}
	} else {
		ext.Status = string(model.ExtensionRejected)
	}
	ext.ReviewedBy = &reviewerID
	ext.ReviewNotes = notes
	ext.ReviewedAt = &now
	return *ext, nil
}

var _ Store = (*memStore)(nil)

// nopBus discards bus publishes
type nopBus struct{}

func (nopBus) PublishRequest(string, map[string]interface{}) error { return nil }
func (nopBus) PublishStaff(string, map[string]interface{}) error   { return nil }
func (nopBus) PublishOps(map[string]interface{}) error             { return nil }

// recordingSink captures emitted trigger events
type recordingSink struct {
	mu     sync.Mutex
	events []model.TriggerEvent
}

func (s *recordingSink) Emit(ctx context.Context, event model.TriggerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) byType(trigger model.TriggerType) []model.TriggerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TriggerEvent
	for _, e := range s.events {
		if e.Type == trigger {
			out = append(out, e)
		}
	}
	return out
}
