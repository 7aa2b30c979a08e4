package engine

import (
	"context"

	"opsflow/internal/model"
)

// Collaborator adapter contracts. These are consumed, not implemented,
// by the engine: every call is bounded by the dispatcher's per-action
// timeout and any non-nil error is treated identically as a failed
// action.

// NotificationSender delivers a notification to one or more recipients.
// Fan-out to N recipients counts as one logical action.
type NotificationSender interface {
	Send(ctx context.Context, recipients []string, title, body string) error
}

// EscalationLogger records an escalation/incident for a request
type EscalationLogger interface {
	Log(ctx context.Context, requestID, reason string, metadata map[string]interface{}) error
}

// DerivedRequestSpec describes a follow-up request to create
type DerivedRequestSpec struct {
	Title    string
	Location string
	Priority model.Priority
	ParentID string
	Params   map[string]interface{}
}

// DerivedRequestCreator creates a follow-up maintenance request
type DerivedRequestCreator interface {
	Create(ctx context.Context, spec DerivedRequestSpec) (string, error)
}

// AllocationSpec describes a resource or calendar slot to allocate
type AllocationSpec struct {
	Resource  string
	RequestID string
	Params    map[string]interface{}
}

// ResourceAllocator reserves resources or calendar slots. Both the
// allocate_resource and auto_schedule action types land here.
type ResourceAllocator interface {
	Allocate(ctx context.Context, spec AllocationSpec) error
}

// Adapters bundles the collaborator endpoints the dispatcher fans out to
type Adapters struct {
	Notifier  NotificationSender
	Escalator EscalationLogger
	Deriver   DerivedRequestCreator
	Allocator ResourceAllocator
}
