package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvxn/revtriage/internal/detect"
	"github.com/ruvxn/revtriage/internal/models"
	"github.com/ruvxn/revtriage/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// The completion service is unavailable in these tests (nil completer),
// which exercises the keyword fallback layers end to end.
func testReviews() []models.RawReview {
	return []models.RawReview{
		{ReviewID: "REV-001", Review: "App crashes when switching workspaces, lost my draft", ReviewerName: "Jane", Date: "2024-03-01", Rating: 1},
		{ReviewID: "REV-002", Review: "Could you add dark mode?", ReviewerName: "Alex", Date: "2024-03-02", Rating: 4},
		{ReviewID: "REV-003", Review: "Works great for our team.", ReviewerName: "Bobby", Date: "2024-03-03", Rating: 5},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	s := newTestStore(t)
	p := New(detect.New(nil), NewStoreSink(s), 1)

	result, err := p.Run(context.Background(), testReviews())
	require.NoError(t, err)

	assert.Equal(t, 3, result.ReviewsProcessed)
	require.Len(t, result.Enriched, 2, "the no-content review yields nothing")
	assert.Equal(t, 2, result.Upserted)
	assert.Empty(t, result.Failures)

	// Defect review degraded to the problem rules.
	crash := result.Enriched[0]
	assert.Equal(t, "Mobile app crashes when switching workspaces", crash.Error.ErrorSummary)
	assert.Equal(t, []string{"Mobile", "Crash"}, crash.Error.ErrorType)
	assert.Equal(t, models.CriticalityCritical, crash.Criticality)

	// Ask review degraded to the suggestion rule.
	ask := result.Enriched[1]
	assert.Equal(t, "Feature request: dark mode", ask.Error.ErrorSummary)
	assert.Equal(t, []string{"Other"}, ask.Error.ErrorType)
	assert.Equal(t, models.CriticalitySuggestion, ask.Criticality)

	// Both landed in the store.
	all, err := s.ListErrors(context.Background(), store.ErrorListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRun_IdempotentUpsert(t *testing.T) {
	s := newTestStore(t)
	p := New(detect.New(nil), NewStoreSink(s), 1)
	ctx := context.Background()

	first, err := p.Run(ctx, testReviews())
	require.NoError(t, err)
	second, err := p.Run(ctx, testReviews())
	require.NoError(t, err)

	assert.Equal(t, first.Upserted, second.Upserted)

	// Second run updated in place: still one record per distinct hash.
	all, err := s.ListErrors(ctx, store.ErrorListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRun_SameSummaryDistinctReviews(t *testing.T) {
	s := newTestStore(t)
	p := New(detect.New(nil), NewStoreSink(s), 1)

	reviews := []models.RawReview{
		{ReviewID: "REV-101", Review: "The app keeps crashing on save"},
		{ReviewID: "REV-102", Review: "Crashing constantly since the update"},
	}
	result, err := p.Run(context.Background(), reviews)
	require.NoError(t, err)

	// Identical canned summaries, different review ids: two records.
	require.Len(t, result.Enriched, 2)
	assert.Equal(t, result.Enriched[0].Error.ErrorSummary, result.Enriched[1].Error.ErrorSummary)
	assert.NotEqual(t, result.Enriched[0].ErrorHash, result.Enriched[1].ErrorHash)

	all, err := s.ListErrors(context.Background(), store.ErrorListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRun_Parallel(t *testing.T) {
	s := newTestStore(t)
	p := New(detect.New(nil), NewStoreSink(s), 4)

	var reviews []models.RawReview
	for i := 0; i < 20; i++ {
		reviews = append(reviews, models.RawReview{
			ReviewID: fmt.Sprintf("REV-%03d", i),
			Review:   "API requests hit a timeout almost every day",
		})
	}

	result, err := p.Run(context.Background(), reviews)
	require.NoError(t, err)
	assert.Equal(t, 20, result.Upserted)

	// Worker count must not change output order: results follow review order.
	for i, e := range result.Enriched {
		assert.Equal(t, fmt.Sprintf("REV-%03d", i), e.Review.ReviewID)
	}
}

func TestRun_DryRun(t *testing.T) {
	sink := &DryRunSink{}
	p := New(detect.New(nil), sink, 1)

	result, err := p.Run(context.Background(), testReviews())
	require.NoError(t, err)

	require.Len(t, sink.Planned, 2)
	assert.Equal(t, "REV-001", sink.Planned[0].ReviewID)
	assert.Equal(t, result.Enriched[0].ErrorHash, sink.Planned[0].ErrorHash)
}

// flakySink fails a fixed number of times before succeeding.
type flakySink struct {
	failures int
	calls    int
}

func (f *flakySink) Upsert(context.Context, models.EnrichedError) error {
	f.calls++
	if f.calls <= f.failures {
		return fmt.Errorf("store busy")
	}
	return nil
}

func TestRun_RetriesTransientSinkErrors(t *testing.T) {
	sink := &flakySink{failures: 2}
	p := New(detect.New(nil), sink, 1)

	result, err := p.Run(context.Background(), testReviews()[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserted)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 3, sink.calls)
}

func TestRun_SkipsAndReportsPermanentSinkErrors(t *testing.T) {
	sink := &flakySink{failures: 1000}
	p := New(detect.New(nil), sink, 1)

	result, err := p.Run(context.Background(), testReviews())
	require.NoError(t, err, "sink failures do not abort the run")
	assert.Equal(t, 0, result.Upserted)
	require.Len(t, result.Failures, 2)
	assert.NotEmpty(t, result.Failures[0].Hash)
}

func TestRun_StoredFieldCaps(t *testing.T) {
	sink := &DryRunSink{}
	p := New(detect.New(nil), sink, 1)

	long := "the app crashes " // rule trigger
	for len(long) < 5000 {
		long += "and then it crashes again "
	}
	_, err := p.Run(context.Background(), []models.RawReview{{ReviewID: "REV-201", Review: long}})
	require.NoError(t, err)

	require.Len(t, sink.Planned, 1)
	assert.LessOrEqual(t, len([]rune(sink.Planned[0].ReviewText)), models.MaxStoredTextLen)
}
