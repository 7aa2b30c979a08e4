package model

import "time"

// RequestStatus represents maintenance request status
type RequestStatus string

const (
	StatusPending    RequestStatus = "PENDING"
	StatusAssigned   RequestStatus = "ASSIGNED"
	StatusEnRoute    RequestStatus = "EN_ROUTE"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusCompleted  RequestStatus = "COMPLETED"
)

// Priority represents SLA urgency of a maintenance request
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// MaintenanceRequest represents a staff-workable maintenance request
type MaintenanceRequest struct {
	ID            string        `json:"id"`
	CreatedBy     string        `json:"createdBy"`
	Title         string        `json:"title"`
	Location      string        `json:"location,omitempty"`
	Status        RequestStatus `json:"status"`
	AssignedTo    *string       `json:"assignedTo,omitempty"`
	Priority      Priority      `json:"priority"`
	SLADeadline   time.Time     `json:"slaDeadline"`
	CreatedAt     time.Time     `json:"createdAt"`
	AssignedAt    *time.Time    `json:"assignedAt,omitempty"`
	EnRouteAt     *time.Time    `json:"enRouteAt,omitempty"`
	WorkStartedAt *time.Time    `json:"workStartedAt,omitempty"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
}

// ExtensionStatus represents time extension review status
type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "PENDING"
	ExtensionApproved ExtensionStatus = "APPROVED"
	ExtensionRejected ExtensionStatus = "REJECTED"
)

// TimeExtensionRequest represents a request to push out a maintenance
// request's SLA deadline. At most one may be pending per request.
type TimeExtensionRequest struct {
	ID              string          `json:"id"`
	RequestID       string          `json:"requestId"`
	RequestedBy     string          `json:"requestedBy"`
	AdditionalHours int             `json:"additionalHours"`
	Reason          string          `json:"reason"`
	Status          ExtensionStatus `json:"status"`
	ReviewedBy      *string         `json:"reviewedBy,omitempty"`
	ReviewNotes     *string         `json:"reviewNotes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
}

// TriggerType classifies domain occurrences that may fire workflow rules
type TriggerType string

const (
	TriggerRequestCreated    TriggerType = "maintenance_request"
	TriggerStatusChanged     TriggerType = "status_changed"
	TriggerSLAWarning        TriggerType = "sla_warning"
	TriggerSLABreach         TriggerType = "sla_breach"
	TriggerIoTAnomaly        TriggerType = "iot_anomaly"
	TriggerCostThreshold     TriggerType = "cost_threshold"
	TriggerExtensionApproved TriggerType = "extension_approved"
	TriggerExtensionRejected TriggerType = "extension_rejected"
)

// TriggerEvent is an immutable domain event consumed by the dispatcher.
// Delivery is at-least-once; consumers must tolerate re-delivery.
type TriggerEvent struct {
	Type       TriggerType      `json:"triggerType"`
	Context    map[string]Value `json:"context"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// ActionType enumerates the side effects a workflow rule may request
type ActionType string

const (
	ActionNotify               ActionType = "notify"
	ActionEscalate             ActionType = "escalate"
	ActionCreateDerivedRequest ActionType = "create_derived_request"
	ActionAllocateResource     ActionType = "allocate_resource"
	ActionAutoSchedule         ActionType = "auto_schedule"
)

// WorkflowAction is a stateless descriptor of one side-effecting operation
type WorkflowAction struct {
	Type   ActionType             `json:"type"`
	Target string                 `json:"target"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// ExecutionStatus represents workflow execution status
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
)

// ActionOutcome represents the outcome of a single action
type ActionOutcome string

const (
	ActionSuccess ActionOutcome = "SUCCESS"
	ActionFailed  ActionOutcome = "FAILED"
)

// ActionResult records a single action's outcome inside an execution
type ActionResult struct {
	ActionType ActionType    `json:"actionType"`
	Target     string        `json:"target"`
	Status     ActionOutcome `json:"status"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// WorkflowExecution is one run of a matched rule's actions against one
// event. Its log is append-only and status moves RUNNING -> COMPLETED
// exactly once, never reopened.
type WorkflowExecution struct {
	ID          string           `json:"id"`
	RuleID      string           `json:"ruleId"`
	TriggerType TriggerType      `json:"triggerType"`
	Context     map[string]Value `json:"context"`
	Status      ExecutionStatus  `json:"status"`
	Log         []ActionResult   `json:"log"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}
