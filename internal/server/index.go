package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/retrieval"
)

// IndexTool handles the scriva_index_chapter MCP tool.
type IndexTool struct {
	d Deps
}

// NewIndexTool creates an IndexTool.
func NewIndexTool(d Deps) *IndexTool {
	return &IndexTool{d: d}
}

// Definition returns the MCP tool definition for scriva_index_chapter.
func (t *IndexTool) Definition() mcp.Tool {
	return mcp.NewTool("scriva_index_chapter",
		mcp.WithDescription(
			"Re-index a chapter's manuscript for passage search. "+
				"Without chapterId, every chapter that changed since it was last indexed is re-indexed.",
		),
		bookArg(),
		mcp.WithString("chapterId", mcp.Description("Chapter to index")),
	)
}

// Handle processes the scriva_index_chapter tool call.
func (t *IndexTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.d.Engine == nil {
		return mcp.NewToolResultError(retrieval.ErrNoEmbedder.Error()), nil
	}
	ob, err := t.d.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := req.GetString("chapterId", "")
	if id == "" {
		rep, err := t.d.Engine.IndexBook(ctx, ob.book)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("index failed: %v", err)), nil
		}
		return jsonResult(rep)
	}

	ch, ok := ob.book.Chapter(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("chapter %q is not in the book structure", id)), nil
	}
	f, err := ob.st.Content().ReadFile(ctx, ch.ManuscriptPath())
	if errors.Is(err, repo.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no manuscript at %s", ch.ManuscriptPath())), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read manuscript: %v", err)), nil
	}
	n, err := t.d.Engine.IndexChapter(ctx, ob.book.Key, id, ch.ManuscriptPath(), f.Content)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("index failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Indexed %s: %d chunks.", id, n)), nil
}
