package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/state"
)

// bookArg describes the optional "book" parameter every tool takes.
func bookArg() mcp.ToolOption {
	return mcp.WithString("book",
		mcp.Description("Book key owner/repo[/branch]. Defaults to the server's configured book."),
	)
}

// openBook resolves the book named in req and loads its configuration.
type openBook struct {
	st   *state.Store
	book model.Book
	cfg  model.ScrivaConfig
}

func (d Deps) open(ctx context.Context, req mcp.CallToolRequest) (*openBook, error) {
	key := d.DefaultBook
	if s := req.GetString("book", ""); s != "" {
		k, err := model.ParseBookKey(s)
		if err != nil {
			return nil, err
		}
		key = k
	}
	if key == (model.BookKey{}) {
		return nil, fmt.Errorf("no book given and no default configured")
	}
	st := state.New(d.Books.Book(key))
	book, cfg, err := st.LoadBook(ctx, key)
	if err != nil {
		return nil, err
	}
	return &openBook{st: st, book: book, cfg: cfg}, nil
}

// intArg extracts an integer argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// listArg splits a comma-separated argument, dropping blanks.
func listArg(req mcp.CallToolRequest, key string) []string {
	var out []string
	for _, s := range strings.Split(req.GetString(key, ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
