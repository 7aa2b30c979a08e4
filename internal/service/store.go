package service

import (
	"context"

	"opsflow/internal/db"
)

// Store is the persistence surface the lifecycle manager needs. The
// pgx-backed db.Queries satisfies it; tests substitute an in-memory
// implementation with the same compare-and-swap semantics. Conditional
// updates signal a miss with pgx.ErrNoRows; the services disambiguate
// that into the typed lifecycle errors.
type Store interface {
	CreateRequest(ctx context.Context, req db.CreateRequestParams) (db.Request, error)
	GetRequestByID(ctx context.Context, id string) (db.Request, error)
	ClaimRequest(ctx context.Context, id, staffID string) error
	MarkEnRoute(ctx context.Context, id, staffID string) error
	MarkWorkStarted(ctx context.Context, id, staffID string) error
	MarkCompleted(ctx context.Context, id, staffID string) error

	CreateExtension(ctx context.Context, ext db.CreateExtensionParams) (db.Extension, error)
	GetExtensionByID(ctx context.Context, id string) (db.Extension, error)
	HasPendingExtension(ctx context.Context, requestID string) (bool, error)
	ReviewExtension(ctx context.Context, id, reviewerID string, approve bool, notes *string) (db.Extension, error)
}

var _ Store = (*db.Queries)(nil)
