package detect

import (
	"strings"

	"github.com/ruvxn/revtriage/internal/models"
)

// problemRule maps trigger keywords to a canned defect summary.
// Rules are checked in order and every matching rule fires, so one
// review can yield several detections.
type problemRule struct {
	summary  string
	types    []string
	keywords []string
}

var problemRules = []problemRule{
	{"Mobile app crashes when switching workspaces", []string{"Mobile", "Crash"},
		[]string{"crash", "crashes", "crashing", "workspace"}},
	{"Invoice total mismatches usage/billing metrics", []string{"Billing"},
		[]string{"invoice", "overcharged", "duplicate charge", "billing mismatch", "billing error"}},
	{"Authentication/session expires unexpectedly", []string{"Auth"},
		[]string{"auth", "authentication", "session expires", "token expires", "login fails", "cannot login", "can't login"}},
	{"API requests time out or are very slow", []string{"API", "Performance"},
		[]string{"timeout", "time out", "very slow", "slow request", "latency", "rate limit"}},
	{"Webhooks deliver duplicates or invalid signatures", []string{"Webhooks"},
		[]string{"webhook", "duplicate event", "signature fail", "signature verification"}},
	{"Docs are outdated or inconsistent", []string{"Docs"},
		[]string{"docs outdated", "documentation outdated", "example wrong", "missing example"}},
	{"UI layout shifts or elements off-canvas", []string{"UI"},
		[]string{"layout shift", "off-canvas", "alignment", "button missing", "overlapping"}},
}

// matchProblemRules scans the lower-cased review text against the rule
// table and emits one detection per matching rule.
func matchProblemRules(text string) []models.DetectedError {
	s := strings.ToLower(text)
	var out []models.DetectedError
	for _, rule := range problemRules {
		for _, kw := range rule.keywords {
			if strings.Contains(s, kw) {
				out = append(out, models.DetectedError{
					ErrorSummary: models.Truncate(rule.summary, models.MaxSummaryLen),
					ErrorType:    rule.types,
					Rationale:    "Keyword-based heuristic match from review text.",
				})
				break
			}
		}
	}
	return out
}

// suggestionTriggers are request-indicating phrases, checked in order.
// The first match wins; at most one suggestion is ever emitted.
var suggestionTriggers = []string{
	"could you add",
	"please add",
	"can you add",
	"would love",
	"would be nice",
	"it would help if",
	"wish there was",
	"wish it had",
	"feature request",
	"any plans for",
}

// suggestionTopics map well-known asks to canned descriptions; anything
// else falls back to echoing the trimmed review text.
var suggestionTopics = []struct {
	keyword string
	desc    string
}{
	{"dark mode", "dark mode"},
	{"offline mode", "offline mode"},
	{"export to csv", "CSV export"},
	{"csv export", "CSV export"},
	{"single sign-on", "single sign-on"},
	{"sso", "single sign-on support"},
	{"two-factor", "two-factor authentication"},
	{"keyboard shortcut", "keyboard shortcuts"},
	{"bulk edit", "bulk editing"},
}

// matchSuggestion synthesizes a single feature-request detection when
// the text reads like an ask rather than a defect report.
func matchSuggestion(text string) []models.DetectedError {
	s := strings.ToLower(text)
	matched := false
	for _, trigger := range suggestionTriggers {
		if strings.Contains(s, trigger) {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	desc := strings.TrimSpace(text)
	for _, topic := range suggestionTopics {
		if strings.Contains(s, topic.keyword) {
			desc = topic.desc
			break
		}
	}

	return []models.DetectedError{{
		ErrorSummary: models.Truncate("Feature request: "+desc, models.MaxSummaryLen),
		ErrorType:    []string{"Other"},
		Rationale:    "Request-indicating phrase detected in review text.",
	}}
}
