// Package pipeline sequences the review triage stages: detect per
// review, normalize, then upsert through the sink.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ruvxn/revtriage/internal/detect"
	"github.com/ruvxn/revtriage/internal/models"
	"github.com/ruvxn/revtriage/internal/normalize"
)

// upsertAttempts bounds retries against transient store errors before a
// record is skipped and reported.
const upsertAttempts = 3

// Failure records one enriched error the sink could not persist.
type Failure struct {
	Hash string
	Err  error
}

// Result aggregates one pipeline run.
type Result struct {
	ReviewsProcessed int
	Enriched         []models.EnrichedError
	Upserted         int
	Failures         []Failure
}

// Pipeline runs detection and normalization per review, then feeds the
// flattened enriched set to the sink. Reviews are independent, so the
// detect/normalize phase may run on several workers; the sink phase is
// always sequential to keep store write pressure bounded.
type Pipeline struct {
	detector *detect.Detector
	sink     Sink
	workers  int
}

// New creates a pipeline. workers < 1 is treated as sequential.
func New(detector *detect.Detector, sink Sink, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{detector: detector, sink: sink, workers: workers}
}

// Run processes all reviews and returns the aggregated result. Sink
// failures are retried, then skipped and reported in Result.Failures;
// only context cancellation aborts the run.
func (p *Pipeline) Run(ctx context.Context, reviews []models.RawReview) (*Result, error) {
	perReview := make([][]models.EnrichedError, len(reviews))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, r := range reviews {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			detected := p.detector.Detect(gctx, r)
			perReview[i] = normalize.Normalize(r, detected)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("detect reviews: %w", err)
	}

	result := &Result{ReviewsProcessed: len(reviews)}
	for _, enriched := range perReview {
		result.Enriched = append(result.Enriched, enriched...)
	}

	for _, e := range result.Enriched {
		if err := p.upsertWithRetry(ctx, e); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Failures = append(result.Failures, Failure{Hash: e.ErrorHash, Err: err})
			continue
		}
		result.Upserted++
	}

	return result, nil
}

func (p *Pipeline) upsertWithRetry(ctx context.Context, e models.EnrichedError) error {
	var lastErr error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		lastErr = p.sink.Upsert(ctx, e)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < upsertAttempts-1 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
			}
		}
	}
	return lastErr
}
