package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvxn/revtriage/internal/models"
	"github.com/ruvxn/revtriage/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return NewServer(s), s
}

func seedError(t *testing.T, s *store.SQLiteStore, reviewID, summary string, crit models.Criticality, types ...string) *models.TrackedError {
	t.Helper()
	e := &models.TrackedError{
		ReviewID:     reviewID,
		ReviewerName: "Jane",
		Date:         "2024-03-01",
		ReviewText:   "some review text",
		ErrorSummary: summary,
		ErrorTypes:   types,
		Criticality:  crit,
		Rationale:    "seeded",
		ErrorHash:    models.HashError(reviewID, summary),
	}
	require.NoError(t, s.CreateError(context.Background(), e))
	return e
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer())
}

func TestHandleListErrors(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	seedError(t, s, "REV-001", "Mobile app crashes when switching workspaces", models.CriticalityCritical, "Mobile", "Crash")
	seedError(t, s, "REV-002", "Feature request: dark mode", models.CriticalitySuggestion, "Other")

	t.Run("no filter", func(t *testing.T) {
		result, err := srv.handleListErrors(ctx, callToolReq("revtriage_list_errors", nil))
		require.NoError(t, err)

		var out []errorOut
		resultJSON(t, result, &out)
		assert.Len(t, out, 2)
	})

	t.Run("criticality filter", func(t *testing.T) {
		result, err := srv.handleListErrors(ctx, callToolReq("revtriage_list_errors",
			map[string]any{"criticality": "Critical"}))
		require.NoError(t, err)

		var out []errorOut
		resultJSON(t, result, &out)
		require.Len(t, out, 1)
		assert.Equal(t, "REV-001", out[0].ReviewID)
		assert.Equal(t, []string{"Mobile", "Crash"}, out[0].ErrorTypes)
	})

	t.Run("category filter", func(t *testing.T) {
		result, err := srv.handleListErrors(ctx, callToolReq("revtriage_list_errors",
			map[string]any{"category": "Other"}))
		require.NoError(t, err)

		var out []errorOut
		resultJSON(t, result, &out)
		require.Len(t, out, 1)
		assert.Equal(t, "Feature request: dark mode", out[0].ErrorSummary)
	})
}

func TestHandleGetError(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	e := seedError(t, s, "REV-001", "Session expires mid-form", models.CriticalityMajor, "Auth")

	t.Run("found", func(t *testing.T) {
		result, err := srv.handleGetError(ctx, callToolReq("revtriage_get_error",
			map[string]any{"hash": e.ErrorHash}))
		require.NoError(t, err)

		var out struct {
			errorOut
			ReviewText string `json:"review_text"`
		}
		resultJSON(t, result, &out)
		assert.Equal(t, e.ErrorHash, out.ErrorHash)
		assert.Equal(t, "some review text", out.ReviewText)
	})

	t.Run("missing hash param", func(t *testing.T) {
		result, err := srv.handleGetError(ctx, callToolReq("revtriage_get_error", nil))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("unknown hash", func(t *testing.T) {
		result, err := srv.handleGetError(ctx, callToolReq("revtriage_get_error",
			map[string]any{"hash": "ffffffffffffffff"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleStats(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	seedError(t, s, "REV-001", "Mobile app crashes when switching workspaces", models.CriticalityCritical, "Crash")
	seedError(t, s, "REV-002", "Typo on pricing page", models.CriticalityMinor, "Docs")
	seedError(t, s, "REV-003", "Another crash report", models.CriticalityCritical, "Crash")

	result, err := srv.handleStats(ctx, callToolReq("revtriage_stats", nil))
	require.NoError(t, err)

	var out struct {
		Total         int            `json:"total"`
		ByCriticality map[string]int `json:"by_criticality"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.ByCriticality["Critical"])
	assert.Equal(t, 1, out.ByCriticality["Minor"])
}
