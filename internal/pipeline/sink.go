package pipeline

import (
	"context"

	"github.com/ruvxn/revtriage/internal/models"
	"github.com/ruvxn/revtriage/internal/store"
)

// Sink is the terminal pipeline stage consuming enriched errors.
type Sink interface {
	Upsert(ctx context.Context, e models.EnrichedError) error
}

// StoreSink writes enriched errors to the tracking store with
// create-if-absent-else-update semantics keyed by content hash.
// Rerunning the pipeline over the same data converges: one record per
// distinct hash, never duplicates.
type StoreSink struct {
	store store.Store
}

// NewStoreSink creates a sink over the given store.
func NewStoreSink(s store.Store) *StoreSink {
	return &StoreSink{store: s}
}

func (s *StoreSink) Upsert(ctx context.Context, e models.EnrichedError) error {
	rec := models.NewTrackedError(e)

	id, err := s.store.FindByHash(ctx, e.ErrorHash)
	if err != nil {
		return err
	}
	if id != "" {
		rec.ID = id
		return s.store.UpdateError(ctx, rec)
	}
	return s.store.CreateError(ctx, rec)
}

// DryRunSink records what would be written instead of touching the
// store. Planned keeps the intended records in upsert order.
type DryRunSink struct {
	Planned []*models.TrackedError
}

func (s *DryRunSink) Upsert(_ context.Context, e models.EnrichedError) error {
	s.Planned = append(s.Planned, models.NewTrackedError(e))
	return nil
}
