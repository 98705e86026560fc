// Package repo is the persistence collaborator: file content addressed by
// path, written under an optimistic-concurrency conflict token.
package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/rcliao/scriva/internal/model"
)

var (
	// ErrNotFound means no file exists at the path.
	ErrNotFound = errors.New("file not found")
	// ErrConflict means the expected conflict token did not match.
	ErrConflict = errors.New("conflict: file changed since it was read")
)

// File is the content of one path plus its current conflict token.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Token   string `json:"token"`
}

// ContentStore reads and writes repository files for one book.
type ContentStore interface {
	// ReadFile returns the file at path or ErrNotFound.
	ReadFile(ctx context.Context, path string) (*File, error)

	// WriteFile stores content at path. expectedToken must equal the current
	// token, or be empty when the file does not exist yet; otherwise the
	// write fails with ErrConflict. Returns the new token.
	WriteFile(ctx context.Context, path, content, expectedToken string) (string, error)
}

// Token computes the conflict token for content.
func Token(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Books resolves the content store of a book.
type Books interface {
	Book(key model.BookKey) ContentStore
}

// Lister enumerates the files of a book.
type Lister interface {
	List(ctx context.Context, key model.BookKey, prefix string) ([]string, error)
}
