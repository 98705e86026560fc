package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rcliao/scriva/internal/model"
)

// DirStore serves a local checkout of a book repository.
type DirStore struct {
	root string
	mu   sync.Mutex
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Book returns d itself: a checkout holds exactly one book.
func (d *DirStore) Book(model.BookKey) ContentStore { return d }

func (d *DirStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes repository root", path)
	}
	return filepath.Join(d.root, clean), nil
}

func (d *DirStore) ReadFile(ctx context.Context, path string) (*File, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	content := string(b)
	return &File{Path: path, Content: content, Token: Token(content)}, nil
}

func (d *DirStore) WriteFile(ctx context.Context, path, content, expectedToken string) (string, error) {
	full, err := d.resolve(path)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := os.ReadFile(full)
	switch {
	case err == nil:
		if Token(string(current)) != expectedToken {
			return "", fmt.Errorf("%s: %w", path, ErrConflict)
		}
	case errors.Is(err, fs.ErrNotExist):
		if expectedToken != "" {
			return "", fmt.Errorf("%s: %w", path, ErrConflict)
		}
	default:
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, full); err != nil {
		return "", err
	}
	return Token(content), nil
}

// List returns the slash-separated paths under prefix, sorted.
func (d *DirStore) List(ctx context.Context, _ model.BookKey, prefix string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(d.root, func(full string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if e.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(d.root, full)
		if err != nil {
			return err
		}
		p := filepath.ToSlash(rel)
		if strings.HasSuffix(p, ".tmp") || !strings.HasPrefix(p, prefix) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
