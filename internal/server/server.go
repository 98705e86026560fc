// Package server exposes scriva over MCP on stdio so an editor agent can
// compile briefings, search passages, index chapters and apply proposed
// updates against a book.
package server

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/retrieval"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the collaborators every tool shares.
type Deps struct {
	Books repo.Books

	// Engine may be nil when no embedding provider is configured; the
	// retrieval tools then report an error and briefings carry no passages.
	Engine *retrieval.Engine

	// DefaultBook is used when a call names no book.
	DefaultBook model.BookKey

	Log *zap.Logger
}

// New creates the MCP server with every scriva tool registered.
func New(d Deps) *server.MCPServer {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	s := server.NewMCPServer(
		"scriva",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	compile := NewCompileTool(d)
	s.AddTool(compile.Definition(), compile.Handle)

	search := NewSearchTool(d)
	s.AddTool(search.Definition(), search.Handle)

	index := NewIndexTool(d)
	s.AddTool(index.Definition(), index.Handle)

	apply := NewApplyTool(d)
	s.AddTool(apply.Definition(), apply.Handle)

	return s
}

// ServeStdio runs s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `scriva keeps the story state of a novel: world model, narrative state, voice and writing rules.

Before drafting or editing, call scriva_compile_briefing with the task type and chapter to get the context the author expects you to respect.
Use scriva_search_passages to find earlier passages about a character or event.
After a chapter changes, call scriva_index_chapter so searches see the new text.
When you learn something that changes the story state, send it as a JSON object to scriva_apply_updates. Entities the author has locked are never changed.`
