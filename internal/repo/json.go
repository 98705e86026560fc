package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ReadJSON decodes the JSON file at path into a T. A missing or unparseable
// file yields fallback with a nil error: "not created yet" is the normal
// initial state of every store. Other failures are returned.
func ReadJSON[T any](ctx context.Context, s ContentStore, path string, fallback T) (T, error) {
	f, err := s.ReadFile(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("read %s: %w", path, err)
	}
	var v T
	if err := json.Unmarshal([]byte(f.Content), &v); err != nil {
		return fallback, nil
	}
	return v, nil
}

// WriteJSON overwrites path with v, fetching the current conflict token
// immediately before writing. A token mismatch surfaces as ErrConflict.
func WriteJSON(ctx context.Context, s ContentStore, path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteText(ctx, s, path, string(b)+"\n")
}

// ReadText returns the text at path, or "" if it does not exist.
func ReadText(ctx context.Context, s ContentStore, path string) (string, error) {
	f, err := s.ReadFile(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return f.Content, nil
}

// WriteText overwrites path with content under the just-fetched token.
func WriteText(ctx context.Context, s ContentStore, path, content string) error {
	token := ""
	f, err := s.ReadFile(ctx, path)
	switch {
	case err == nil:
		token = f.Token
	case errors.Is(err, ErrNotFound):
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := s.WriteFile(ctx, path, content, token); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
