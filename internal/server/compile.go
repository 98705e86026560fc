package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/rcliao/scriva/internal/compiler"
	"github.com/rcliao/scriva/internal/model"
)

// CompileTool handles the scriva_compile_briefing MCP tool.
type CompileTool struct {
	d Deps
}

// NewCompileTool creates a CompileTool.
func NewCompileTool(d Deps) *CompileTool {
	return &CompileTool{d: d}
}

// Definition returns the MCP tool definition for scriva_compile_briefing.
func (t *CompileTool) Definition() mcp.Tool {
	return mcp.NewTool("scriva_compile_briefing",
		mcp.WithDescription(
			"Compile the token-budgeted context briefing for an AI task on the book: "+
				"summaries, rules, voice, world model and narrative state, most important first.",
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Task type: chat, write, continue, edit, critique, research, revision-plan"),
		),
		bookArg(),
		mcp.WithString("chapterId", mcp.Description("Chapter the task is about")),
		mcp.WithString("partId", mcp.Description("Part the task is about, when no chapter is given")),
		mcp.WithString("characters", mcp.Description("Comma-separated character names in focus")),
		mcp.WithString("selection", mcp.Description("Text the author has selected")),
		mcp.WithString("userMessage", mcp.Description("The author's request")),
		mcp.WithBoolean("prompt",
			mcp.Description("Return the rendered system prompt instead of the sections as JSON (default: false)"),
		),
	)
}

// Handle processes the scriva_compile_briefing tool call.
func (t *CompileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "")
	if typ == "" {
		return mcp.NewToolResultError("'type' is required"), nil
	}
	ob, err := t.d.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task := model.CompileTask{
		Type:        model.TaskType(typ),
		ChapterID:   req.GetString("chapterId", ""),
		PartID:      req.GetString("partId", ""),
		Characters:  listArg(req, "characters"),
		Selection:   req.GetString("selection", ""),
		UserMessage: req.GetString("userMessage", ""),
	}

	var r compiler.Retriever
	if t.d.Engine != nil {
		r = t.d.Engine
	}
	b, err := compiler.New(ob.st, r, t.d.Log).Compile(ctx, task, ob.cfg, ob.book)
	if err != nil {
		t.d.Log.Warn("compile failed", zap.String("book", ob.book.Key.String()), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("compile failed: %v", err)), nil
	}

	if boolArg(req, "prompt", false) {
		return mcp.NewToolResultText(compiler.BriefingToPrompt(b, ob.book.Title)), nil
	}
	return jsonResult(b)
}
