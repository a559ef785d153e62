package detect

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ruvxn/revtriage/internal/llm"
	"github.com/ruvxn/revtriage/internal/models"
)

// maxReviewChars is a hard safety bound on how much review text is sent
// to the completion service. Long reviews are cut, not summarized, so
// issues mentioned only past the bound are missed.
const maxReviewChars = 4000

const systemPrompt = `You are a precise QA assistant.
Task: Given a customer review, extract ZERO OR MORE concrete PRODUCT/SERVICE PROBLEMS or FEATURE REQUESTS.

Return ONLY valid JSON with this exact shape:
{"errors":[{"error_summary":"...", "error_type":["Crash","Billing","Auth","API","Performance","Docs","Permissions","Mobile","UI","Webhooks","Other"], "rationale":"..."}]}

Guidelines:
- error_summary <= 140 chars, actionable (what/where).
- If no real problem or request is present, return {"errors": []}.
- Prefer specific types; include multiple types if appropriate.
- For feature requests, start error_summary with "Feature request:" and use type ["Other"].
- Output must be ONLY the JSON object (no prose).

Example 1:
Review:
` + "```" + `
Not thrilled about how the mobile app crashes whenever I switch workspaces. Lost my draft twice.
` + "```" + `
Return JSON only:
{"errors":[{"error_summary":"Mobile app crashes when switching workspaces","error_type":["Mobile","Crash"],"rationale":"User reports reproducible crash and data loss while switching workspaces."}]}

Example 2:
Review:
` + "```" + `
Solid product overall. Would love an option to export dashboards to CSV though.
` + "```" + `
Return JSON only:
{"errors":[{"error_summary":"Feature request: CSV export for dashboards","error_type":["Other"],"rationale":"User asks for a dashboard export capability that does not exist today."}]}`

// Detector extracts issues from a review via a completion service, with
// deterministic keyword layers behind it. The fallback chain runs in a
// fixed order and stops at the first layer that yields anything:
// model -> problem rules -> suggestion rule. An empty final result is a
// valid outcome, not an error.
type Detector struct {
	completer llm.Completer
	chain     []func(ctx context.Context, review models.RawReview) []models.DetectedError
}

// New creates a Detector. A nil completer skips the model layer and
// goes straight to the keyword rules.
func New(completer llm.Completer) *Detector {
	d := &Detector{completer: completer}
	d.chain = []func(ctx context.Context, review models.RawReview) []models.DetectedError{
		d.modelDetect,
		func(_ context.Context, r models.RawReview) []models.DetectedError {
			return matchProblemRules(r.Review)
		},
		func(_ context.Context, r models.RawReview) []models.DetectedError {
			return matchSuggestion(r.Review)
		},
	}
	return d
}

// Detect returns the detections for one review, in discovery order.
func (d *Detector) Detect(ctx context.Context, review models.RawReview) []models.DetectedError {
	for _, stage := range d.chain {
		if out := stage(ctx, review); len(out) > 0 {
			return out
		}
	}
	return nil
}

// buildUserPrompt wraps the bounded review text for the model.
func buildUserPrompt(reviewText string) string {
	var sb strings.Builder
	sb.WriteString("Review:\n```\n")
	sb.WriteString(models.Truncate(reviewText, maxReviewChars))
	sb.WriteString("\n```\nReturn JSON only:")
	return sb.String()
}

// modelDetect invokes the completion service and sanitizes whatever
// comes back. Transport failures and unusable output both degrade to an
// empty result so the next chain stage can take over.
func (d *Detector) modelDetect(ctx context.Context, review models.RawReview) []models.DetectedError {
	if d.completer == nil {
		return nil
	}

	raw, err := d.completer.Complete(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(review.Review),
	})
	if err != nil {
		return nil
	}

	return sanitizeItems(parseResponse(raw))
}

// response is the JSON envelope the model is instructed to return.
// Items stay raw so one malformed entry cannot poison the rest.
type response struct {
	Errors []json.RawMessage `json:"errors"`
}

// parseResponse recovers a response from model output. Cascade: direct
// parse, then the first-{ to last-} substring (repairs JSON wrapped in
// commentary), then an empty set.
func parseResponse(raw string) []json.RawMessage {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	var resp response
	if err := json.Unmarshal([]byte(s), &resp); err == nil {
		return resp.Errors
	}

	a, b := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if a == -1 || b <= a {
		return nil
	}
	if err := json.Unmarshal([]byte(s[a:b+1]), &resp); err != nil {
		return nil
	}
	return resp.Errors
}

// rawItem tolerates error_type arriving as either a string or a list.
type rawItem struct {
	ErrorSummary string     `json:"error_summary"`
	ErrorType    stringList `json:"error_type"`
	Rationale    string     `json:"rationale"`
}

type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = []string{single}
		return nil
	}
	// Unusable shape; leave empty and let the category default apply.
	*l = nil
	return nil
}

// sanitizeItems enforces the detection contract on model output:
// object-shaped entries only, summary trimmed and capped, types
// filtered to the known categories (default ["Other"]), rationale
// trimmed, and empty-summary entries dropped.
func sanitizeItems(items []json.RawMessage) []models.DetectedError {
	var out []models.DetectedError
	for _, item := range items {
		var e rawItem
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}

		summary := models.Truncate(strings.TrimSpace(e.ErrorSummary), models.MaxSummaryLen)
		if summary == "" {
			continue
		}

		var types []string
		for _, t := range e.ErrorType {
			if models.Categories[t] {
				types = append(types, t)
			}
		}
		if len(types) == 0 {
			types = []string{"Other"}
		}

		out = append(out, models.DetectedError{
			ErrorSummary: summary,
			ErrorType:    types,
			Rationale:    strings.TrimSpace(e.Rationale),
		})
	}
	return out
}
