// Package classify assigns a triage criticality to detected errors
// using ordered keyword buckets. The bucket lists are load-bearing:
// existing tracked data was classified with exactly these keywords, so
// changing them reclassifies history.
package classify

import (
	"strings"

	"github.com/ruvxn/revtriage/internal/models"
)

// bucketOrder is the priority order for keyword matching. An error
// matching both a Critical and a Minor keyword is Critical.
var bucketOrder = []models.Criticality{
	models.CriticalityCritical,
	models.CriticalityMajor,
	models.CriticalityMinor,
	models.CriticalitySuggestion,
}

var buckets = map[models.Criticality][]string{
	models.CriticalityCritical: {
		"crash", "crashes", "crashing",
		"data loss", "lost data",
		"fails to login", "cannot login", "can't login", "login failure",
		"payment fails", "charge failed", "payment error",
		"outage", "downtime", "service down", "unavailable",
		"security breach", "leak", "p0",
	},
	models.CriticalityMajor: {
		"timeout", "very slow", "slow query", "latency",
		"duplicate charge", "overcharged", "billing mismatch",
		"token expires", "auth expires", "session expires",
		"inconsistent api", "breaking change", "backward incompatible",
		"webhook duplicate", "retry storm",
		"memory leak", "high cpu", "high cpu usage",
	},
	models.CriticalityMinor: {
		"typo", "grammar", "layout shift", "overlapping",
		"button off-canvas", "alignment", "color contrast",
		"docs outdated", "example wrong", "missing example",
	},
	models.CriticalitySuggestion: {
		"wish", "would be nice", "feature request",
		"could you add", "please add", "it would help if",
	},
}

// Classify returns the criticality for a detection. Pure and total:
// the same input always yields the same bucket, and every input lands
// somewhere (None when nothing applies).
func Classify(err models.DetectedError) models.Criticality {
	s := strings.ToLower(err.ErrorSummary + " " + strings.Join(err.ErrorType, " "))

	for _, level := range bucketOrder {
		for _, kw := range buckets[level] {
			if strings.Contains(s, kw) {
				return level
			}
		}
	}

	// Type-based fallbacks when no keyword hits.
	hasType := func(name string) bool {
		for _, t := range err.ErrorType {
			if t == name {
				return true
			}
		}
		return false
	}

	if hasType("Crash") || (hasType("Billing") && strings.Contains(s, "duplicate")) {
		return models.CriticalityCritical
	}
	if hasType("Performance") || hasType("Auth") || hasType("API") {
		return models.CriticalityMajor
	}
	if hasType("UI") || hasType("Docs") {
		return models.CriticalityMinor
	}
	return models.CriticalityNone
}
