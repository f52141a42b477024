package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/magpie/pkg/usecase/digest"
	"github.com/m-mizutani/magpie/pkg/usecase/insight"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the insight engine's read operations as MCP tools over
// stdio: similarity search, trend aggregation, and strategic reports.
type Server struct {
	insight *insight.UseCase
	digest  *digest.UseCase
	server  *mcp.Server
}

type searchParams struct {
	Query string `json:"query" jsonschema:"description=Natural language query to search similar documents"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results (default 10)"`
}

type trendsParams struct{}

type reportParams struct {
	Count int    `json:"count,omitempty" jsonschema:"description=Window size: last N documents (default 20)"`
	Since string `json:"since,omitempty" jsonschema:"description=Window start as RFC 3339 timestamp"`
}

// NewServer creates an MCP server wired to the given usecases
func NewServer(insightUC *insight.UseCase, digestUC *digest.UseCase) (*Server, error) {
	s := &Server{
		insight: insightUC,
		digest:  digestUC,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "magpie",
			Version: "1.0.0",
		}, nil),
	}

	searchSchema, err := jsonschema.For[searchParams](nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to derive search tool schema")
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Find ingested documents similar to a natural language query using vector similarity",
		InputSchema: searchSchema,
	}, s.searchDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_trends",
		Description: "Aggregate all ingested documents: topic/risk/opportunity frequencies, sentiment timeline, repeated risks, emerging themes",
	}, s.getTrends)

	reportSchema, err := jsonschema.For[reportParams](nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to derive report tool schema")
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "build_report",
		Description: "Build a strategic report over the most recent documents: summary candidates, repeated risks, emerging themes, strategic signals",
		InputSchema: reportSchema,
	}, s.buildReport)

	return s, nil
}

// Run serves MCP over stdio until the context is canceled
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server failed")
	}
	return nil
}

func (s *Server) searchDocuments(ctx context.Context, req *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	results, err := s.insight.Search(ctx, insight.SearchOptions{
		Query: params.Query,
		Limit: params.Limit,
	})
	if err != nil {
		return nil, nil, err
	}

	if len(results) == 0 {
		return textResult("No matching documents found"), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d documents:\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. [%.4f] %s\n   %s\n", i+1, r.Score, r.Record.ID, r.Record.Summary)
	}
	return textResult(sb.String()), nil, nil
}

func (s *Server) getTrends(ctx context.Context, req *mcp.CallToolRequest, params *trendsParams) (*mcp.CallToolResult, any, error) {
	snap, err := s.insight.Trends(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(snap)
}

func (s *Server) buildReport(ctx context.Context, req *mcp.CallToolRequest, params *reportParams) (*mcp.CallToolResult, any, error) {
	window := digest.Window{Count: params.Count}
	if window.Count <= 0 {
		window.Count = 20
	}
	if params.Since != "" {
		since, err := time.Parse(time.RFC3339, params.Since)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "invalid since timestamp", goerr.V("since", params.Since))
		}
		window.Since = since
	}

	report, err := s.digest.BuildReport(ctx, window)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(report)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to encode result")
	}
	return textResult(string(data)), nil, nil
}
