// Package normalize joins detections with their review, criticality,
// and dedupe hash, collapsing duplicates within a single review.
package normalize

import (
	"github.com/ruvxn/revtriage/internal/classify"
	"github.com/ruvxn/revtriage/internal/models"
)

// Normalize enriches each detection and deduplicates by error hash.
// The hash covers (review id, summary) only, so two detections of the
// same problem collapse even when rationale or type ordering differ;
// the later detection wins. Emission follows first-seen hash order.
func Normalize(review models.RawReview, detected []models.DetectedError) []models.EnrichedError {
	uniq := make(map[string]models.EnrichedError, len(detected))
	var order []string

	for _, e := range detected {
		hash := models.HashError(review.ReviewID, e.ErrorSummary)
		if _, seen := uniq[hash]; !seen {
			order = append(order, hash)
		}
		uniq[hash] = models.EnrichedError{
			Review:      review,
			Error:       e,
			Criticality: classify.Classify(e),
			ErrorHash:   hash,
		}
	}

	out := make([]models.EnrichedError, 0, len(order))
	for _, hash := range order {
		out = append(out, uniq[hash])
	}
	return out
}
