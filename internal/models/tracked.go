package models

import "time"

// MaxStoredTextLen caps free-text fields persisted to the tracking
// store (review text and rationale).
const MaxStoredTextLen = 1900

// TrackedError is the persistent representation of an enriched error,
// keyed by ErrorHash for idempotent upserts.
type TrackedError struct {
	ID           string
	ReviewID     string
	ReviewerName string
	Date         string
	ReviewText   string
	ErrorSummary string
	ErrorTypes   []string
	Criticality  Criticality
	Rationale    string
	ErrorHash    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTrackedError maps an enriched error onto its stored form, applying
// the per-field length caps.
func NewTrackedError(e EnrichedError) *TrackedError {
	return &TrackedError{
		ReviewID:     e.Review.ReviewID,
		ReviewerName: e.Review.ReviewerName,
		Date:         e.Review.Date,
		ReviewText:   Truncate(e.Review.Review, MaxStoredTextLen),
		ErrorSummary: e.Error.ErrorSummary,
		ErrorTypes:   e.Error.ErrorType,
		Criticality:  e.Criticality,
		Rationale:    Truncate(e.Error.Rationale, MaxStoredTextLen),
		ErrorHash:    e.ErrorHash,
	}
}
