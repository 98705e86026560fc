package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/retrieval"
)

// SearchTool handles the scriva_search_passages MCP tool.
type SearchTool struct {
	d Deps
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(d Deps) *SearchTool {
	return &SearchTool{d: d}
}

// Definition returns the MCP tool definition for scriva_search_passages.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("scriva_search_passages",
		mcp.WithDescription("Find the manuscript passages most similar to a query in the book's index."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to look for, in natural language"),
		),
		bookArg(),
		mcp.WithNumber("topK", mcp.Description("Max results (default: 5)")),
		mcp.WithString("chapterIds", mcp.Description("Comma-separated chapters to restrict to")),
		mcp.WithString("types", mcp.Description("Comma-separated chunk types: narrative, dialogue, description, interiority, action")),
		mcp.WithString("characters", mcp.Description("Comma-separated character names; any match passes")),
	)
}

// Handle processes the scriva_search_passages tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	if t.d.Engine == nil {
		return mcp.NewToolResultError(retrieval.ErrNoEmbedder.Error()), nil
	}
	ob, err := t.d.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := t.d.Engine.Search(ctx, ob.book.Key, model.RAGQuery{
		Text: query,
		TopK: intArg(req, "topK", retrieval.DefaultTopK),
		Filters: model.RAGFilters{
			ChapterIDs: listArg(req, "chapterIds"),
			Types:      listArg(req, "types"),
			Characters: listArg(req, "characters"),
		},
	})
	if errors.Is(err, retrieval.ErrIndexMismatch) {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v; re-index the chapters with scriva_index_chapter", err)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No passages found. Has the book been indexed?"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d passages:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s, %.3f)\n%s\n\n", i+1, r.Chunk.ChapterID, r.Chunk.Type, r.Score, r.Chunk.Text)
	}
	return mcp.NewToolResultText(b.String()), nil
}
