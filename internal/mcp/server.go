package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ruvxn/revtriage/internal/models"
	"github.com/ruvxn/revtriage/internal/store"
)

// Server wraps the tracking store and exposes it as MCP tools, so an
// agent can query triaged review errors without touching SQLite directly.
type Server struct {
	store store.Store
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store) *Server {
	return &Server{store: s}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("revtriage", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listErrorsTool())
	srv.AddTool(s.getErrorTool())
	srv.AddTool(s.statsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// errorOut is the JSON shape tools return per tracked error.
type errorOut struct {
	ID           string   `json:"id"`
	ReviewID     string   `json:"review_id"`
	ReviewerName string   `json:"reviewer_name"`
	Date         string   `json:"date"`
	ErrorSummary string   `json:"error_summary"`
	ErrorTypes   []string `json:"error_types"`
	Criticality  string   `json:"criticality"`
	Rationale    string   `json:"rationale"`
	ErrorHash    string   `json:"error_hash"`
}

func toErrorOut(e *models.TrackedError) errorOut {
	return errorOut{
		ID:           e.ID,
		ReviewID:     e.ReviewID,
		ReviewerName: e.ReviewerName,
		Date:         e.Date,
		ErrorSummary: e.ErrorSummary,
		ErrorTypes:   e.ErrorTypes,
		Criticality:  string(e.Criticality),
		Rationale:    e.Rationale,
		ErrorHash:    e.ErrorHash,
	}
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// revtriage_list_errors
func (s *Server) listErrorsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revtriage_list_errors",
		mcp.WithDescription("List tracked review errors. Returns a JSON array with review id, summary, category tags, criticality, and content hash."),
		mcp.WithString("criticality", mcp.Description("Filter by criticality: Critical, Major, Minor, Suggestion, None")),
		mcp.WithString("category", mcp.Description("Filter by category tag, e.g. Crash, Billing, API")),
		mcp.WithString("review_id", mcp.Description("Filter by source review id")),
	)
	return tool, s.handleListErrors
}

func (s *Server) handleListErrors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.ErrorListFilter{
		Criticality: models.Criticality(request.GetString("criticality", "")),
		Category:    request.GetString("category", ""),
		ReviewID:    request.GetString("review_id", ""),
	}

	errs, err := s.store.ListErrors(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list errors: %v", err)), nil
	}

	out := make([]errorOut, len(errs))
	for i, e := range errs {
		out[i] = toErrorOut(e)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal errors: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revtriage_get_error
func (s *Server) getErrorTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revtriage_get_error",
		mcp.WithDescription("Get one tracked review error by its content hash, including the capped review text."),
		mcp.WithString("hash", mcp.Required(), mcp.Description("16-char content hash of the error")),
	)
	return tool, s.handleGetError
}

func (s *Server) handleGetError(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hash, err := request.RequireString("hash")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: hash"), nil
	}

	e, err := s.store.GetErrorByHash(ctx, hash)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("error not found: %s", hash)), nil
	}

	out := struct {
		errorOut
		ReviewText string `json:"review_text"`
	}{toErrorOut(e), e.ReviewText}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// revtriage_stats
func (s *Server) statsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("revtriage_stats",
		mcp.WithDescription("Summarize the tracked error set: total count and a per-criticality breakdown."),
	)
	return tool, s.handleStats
}

func (s *Server) handleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}

	byCrit := make(map[string]int, len(stats.ByCriticality))
	for crit, count := range stats.ByCriticality {
		byCrit[string(crit)] = count
	}

	data, err := json.Marshal(map[string]any{
		"total":          stats.Total,
		"by_criticality": byCrit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
