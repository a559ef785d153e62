package store

import (
	"context"

	"github.com/ruvxn/revtriage/internal/models"
)

// ErrorListFilter specifies filters for listing tracked errors.
type ErrorListFilter struct {
	ReviewID    string
	Criticality models.Criticality
	Category    string
}

// Stats summarizes the tracked error set.
type Stats struct {
	Total         int
	ByCriticality map[models.Criticality]int
}

// Store defines the tracking-store contract the pipeline sink writes
// through. Create and update are atomic per record; FindByHash plus
// create-or-update gives the upsert its idempotency.
type Store interface {
	// FindByHash returns the record id for a content hash, or "" when
	// no record exists.
	FindByHash(ctx context.Context, hash string) (string, error)
	CreateError(ctx context.Context, e *models.TrackedError) error
	UpdateError(ctx context.Context, e *models.TrackedError) error
	GetErrorByHash(ctx context.Context, hash string) (*models.TrackedError, error)
	ListErrors(ctx context.Context, filter ErrorListFilter) ([]*models.TrackedError, error)
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
