package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

// Request represents a maintenance request row
type Request struct {
	ID            string
	CreatedBy     string
	Title         string
	Location      string
	Status        string
	AssignedTo    *string
	Priority      string
	SLADeadline   time.Time
	CreatedAt     time.Time
	AssignedAt    *time.Time
	EnRouteAt     *time.Time
	WorkStartedAt *time.Time
	CompletedAt   *time.Time
}

const requestColumns = `id, created_by, title, location, status, assigned_to, priority,
		sla_deadline, created_at, assigned_at, en_route_at, work_started_at, completed_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(
		&r.ID, &r.CreatedBy, &r.Title, &r.Location, &r.Status, &r.AssignedTo, &r.Priority,
		&r.SLADeadline, &r.CreatedAt, &r.AssignedAt, &r.EnRouteAt, &r.WorkStartedAt, &r.CompletedAt,
	)
	return r, err
}

type CreateRequestParams struct {
	ID          string
	CreatedBy   string
	Title       string
	Location    string
	Priority    string
	SLADeadline time.Time
}

func (q *Queries) CreateRequest(ctx context.Context, req CreateRequestParams) (Request, error) {
	return scanRequest(q.Pool.QueryRow(ctx,
		`INSERT INTO maintenance_requests (id, created_by, title, location, status, priority, sla_deadline)
		VALUES ($1, $2, $3, $4, 'PENDING', $5, $6)
		RETURNING `+requestColumns,
		req.ID, req.CreatedBy, req.Title, req.Location, req.Priority, req.SLADeadline,
	))
}

func (q *Queries) GetRequestByID(ctx context.Context, id string) (Request, error) {
	return scanRequest(q.Pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM maintenance_requests WHERE id = $1`, id,
	))
}

// ClaimRequest atomically assigns a pending, unassigned request to a
// staff member. A plain read-then-write here would reintroduce the
// double-assignment race; the conditional UPDATE is the contract. Zero
// affected rows means someone else got there first.
func (q *Queries) ClaimRequest(ctx context.Context, id, staffID string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE maintenance_requests
		SET status = 'ASSIGNED', assigned_to = $2, assigned_at = NOW()
		WHERE id = $1 AND status = 'PENDING' AND assigned_to IS NULL`,
		id, staffID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkEnRoute moves an assigned request to EN_ROUTE for its assignee
func (q *Queries) MarkEnRoute(ctx context.Context, id, staffID string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE maintenance_requests
		SET status = 'EN_ROUTE', en_route_at = NOW()
		WHERE id = $1 AND assigned_to = $2 AND status = 'ASSIGNED'`,
		id, staffID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkWorkStarted moves an en-route request to IN_PROGRESS for its assignee
func (q *Queries) MarkWorkStarted(ctx context.Context, id, staffID string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE maintenance_requests
		SET status = 'IN_PROGRESS', work_started_at = NOW()
		WHERE id = $1 AND assigned_to = $2 AND status = 'EN_ROUTE'`,
		id, staffID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkCompleted moves an in-progress request to COMPLETED for its assignee
func (q *Queries) MarkCompleted(ctx context.Context, id, staffID string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE maintenance_requests
		SET status = 'COMPLETED', completed_at = NOW()
		WHERE id = $1 AND assigned_to = $2 AND status = 'IN_PROGRESS'`,
		id, staffID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Extension represents a time extension row
type Extension struct {
	ID              string
	RequestID       string
	RequestedBy     string
	AdditionalHours int
	Reason          string
	Status          string
	ReviewedBy      *string
	ReviewNotes     *string
	CreatedAt       time.Time
	ReviewedAt      *time.Time
}

const extensionColumns = `id, request_id, requested_by, additional_hours, reason, status,
		reviewed_by, review_notes, created_at, reviewed_at`

func scanExtension(row pgx.Row) (Extension, error) {
	var e Extension
	err := row.Scan(
		&e.ID, &e.RequestID, &e.RequestedBy, &e.AdditionalHours, &e.Reason, &e.Status,
		&e.ReviewedBy, &e.ReviewNotes, &e.CreatedAt, &e.ReviewedAt,
	)
	return e, err
}

// ErrPendingExtensionExists is returned when inserting a second pending
// extension for the same request. A partial unique index backs this so
// concurrent callers cannot slip past the service-level pre-check.
var ErrPendingExtensionExists = errors.New("pending extension already exists")

type CreateExtensionParams struct {
	ID              string
	RequestID       string
	RequestedBy     string
	AdditionalHours int
	Reason          string
}

func (q *Queries) CreateExtension(ctx context.Context, ext CreateExtensionParams) (Extension, error) {
	row := q.Pool.QueryRow(ctx,
		`INSERT INTO time_extensions (id, request_id, requested_by, additional_hours, reason, status)
		VALUES ($1, $2, $3, $4, $5, 'PENDING')
		RETURNING `+extensionColumns,
		ext.ID, ext.RequestID, ext.RequestedBy, ext.AdditionalHours, ext.Reason,
	)
	e, err := scanExtension(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Extension{}, ErrPendingExtensionExists
		}
		return Extension{}, err
	}
	return e, nil
}

func (q *Queries) GetExtensionByID(ctx context.Context, id string) (Extension, error) {
	return scanExtension(q.Pool.QueryRow(ctx,
		`SELECT `+extensionColumns+` FROM time_extensions WHERE id = $1`, id,
	))
}

func (q *Queries) HasPendingExtension(ctx context.Context, requestID string) (bool, error) {
	var exists bool
	err := q.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM time_extensions WHERE request_id = $1 AND status = 'PENDING')`,
		requestID,
	).Scan(&exists)
	return exists, err
}

// ReviewExtension settles a pending extension in one transaction. On
// approval the owning request's sla_deadline is pushed out by the
// requested hours; status is never touched; the review handshake is
// independent of the main state machine. Zero affected rows means the
// extension was not pending (or does not exist).
func (q *Queries) ReviewExtension(ctx context.Context, id, reviewerID string, approve bool, notes *string) (Extension, error) {
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return Extension{}, err
	}
	defer tx.Rollback(ctx)

	status := "REJECTED"
	if approve {
		status = "APPROVED"
	}

	row := tx.QueryRow(ctx,
		`UPDATE time_extensions
		SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+extensionColumns,
		id, status, reviewerID, notes,
	)
	ext, err := scanExtension(row)
	if err != nil {
		return Extension{}, err
	}

	if approve {
		_, err = tx.Exec(ctx,
			`UPDATE maintenance_requests
			SET sla_deadline = sla_deadline + make_interval(hours => $2)
			WHERE id = $1`,
			ext.RequestID, ext.AdditionalHours,
		)
		if err != nil {
			return Extension{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Extension{}, err
	}
	return ext, nil
}
