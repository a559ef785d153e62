package models

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

// Criticality is the triage severity assigned to a detected error.
type Criticality string

const (
	CriticalityCritical   Criticality = "Critical"
	CriticalityMajor      Criticality = "Major"
	CriticalityMinor      Criticality = "Minor"
	CriticalitySuggestion Criticality = "Suggestion"
	CriticalityNone       Criticality = "None"
)

// CriticalityRank returns a numeric rank for sorting (higher = more severe).
func CriticalityRank(c Criticality) int {
	switch c {
	case CriticalityCritical:
		return 4
	case CriticalityMajor:
		return 3
	case CriticalityMinor:
		return 2
	case CriticalitySuggestion:
		return 1
	default:
		return 0
	}
}

// Categories is the fixed set of error type tags a detection may carry.
// Anything outside this set is coerced to "Other".
var Categories = map[string]bool{
	"Crash":       true,
	"Billing":     true,
	"Auth":        true,
	"API":         true,
	"Performance": true,
	"Docs":        true,
	"Permissions": true,
	"Mobile":      true,
	"UI":          true,
	"Webhooks":    true,
	"Other":       true,
}

// MaxSummaryLen caps error summaries at a headline-friendly length.
const MaxSummaryLen = 140

// DetectedError is one distinct problem or feature request extracted
// from a review, before classification and hashing.
type DetectedError struct {
	ErrorSummary string   `json:"error_summary"`
	ErrorType    []string `json:"error_type"`
	Rationale    string   `json:"rationale"`
}

// EnrichedError is a detection joined with its source review,
// criticality, and dedupe hash. Ready for the tracking store.
type EnrichedError struct {
	Review      RawReview
	Error       DetectedError
	Criticality Criticality
	ErrorHash   string
}

// Truncate cuts s to at most n runes, never splitting a rune.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// HashError computes the dedupe/idempotency key for a detection:
// the first 16 hex chars of SHA-256 over "reviewID|summary".
// The hash deliberately ignores rationale and types so that repeated
// detections of the same problem in the same review collapse.
func HashError(reviewID, summary string) string {
	sum := sha256.Sum256([]byte(reviewID + "|" + summary))
	return hex.EncodeToString(sum[:])[:16]
}
