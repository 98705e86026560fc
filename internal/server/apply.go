package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rcliao/scriva/internal/proposal"
)

// ApplyTool handles the scriva_apply_updates MCP tool.
type ApplyTool struct {
	d Deps
}

// NewApplyTool creates an ApplyTool.
func NewApplyTool(d Deps) *ApplyTool {
	return &ApplyTool{d: d}
}

// Definition returns the MCP tool definition for scriva_apply_updates.
func (t *ApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("scriva_apply_updates",
		mcp.WithDescription(
			"Merge proposed story-state updates into the book. The payload is a JSON object with any of: "+
				"characters, places, timeline, objects, worldRules, narrativeState, promises, threads, tension, voiceProfile. "+
				"List entries replace stored entities with the same id, so every entity must carry all of its fields (use [] for empty lists). "+
				"New ids are added and entities the author locked are kept. "+
				"Malformed payloads change nothing.",
		),
		mcp.WithString("updates",
			mcp.Required(),
			mcp.Description("The JSON object of proposed updates; surrounding prose or code fences are ignored"),
		),
		bookArg(),
	)
}

// Handle processes the scriva_apply_updates tool call.
func (t *ApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("updates", "")
	if raw == "" {
		return mcp.NewToolResultError("'updates' is required"), nil
	}
	ob, err := t.d.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := proposal.NewApplier(ob.st, t.d.Log).ApplyRaw(ctx, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("apply failed: %v", err)), nil
	}
	return jsonResult(res)
}
