package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/scriva/internal/model"
)

// SQLiteRepo stores book files in SQLite, one versioned row per write.
// It stands in for the GitHub content API when working offline.
type SQLiteRepo struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteRepo opens or creates a SQLite database at the given path.
func NewSQLiteRepo(dbPath string) (*SQLiteRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps the token check and insert atomic across goroutines.
	db.SetMaxOpenConns(1)

	r := &SQLiteRepo{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepo) newID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
}

func (r *SQLiteRepo) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id          TEXT PRIMARY KEY,
		book        TEXT NOT NULL,
		path        TEXT NOT NULL,
		content     TEXT NOT NULL,
		token       TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		supersedes  TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_book_path ON files(book, path, version DESC);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Book returns the ContentStore view of one book.
func (r *SQLiteRepo) Book(key model.BookKey) ContentStore {
	return &sqliteBook{repo: r, book: key.String()}
}

// Close closes the database.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// FileVersion is one historical write of a path.
type FileVersion struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Token      string    `json:"token"`
	Version    int       `json:"version"`
	Supersedes string    `json:"supersedes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// History returns every version of path, newest first.
func (r *SQLiteRepo) History(ctx context.Context, key model.BookKey, path string) ([]FileVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, path, token, version, supersedes, created_at FROM files
		 WHERE book = ? AND path = ? ORDER BY version DESC`, key.String(), path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileVersion
	for rows.Next() {
		var v FileVersion
		var supersedes sql.NullString
		var createdAt string
		if err := rows.Scan(&v.ID, &v.Path, &v.Token, &v.Version, &supersedes, &createdAt); err != nil {
			return nil, err
		}
		v.Supersedes = supersedes.String
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

// List returns the latest paths of a book under prefix.
func (r *SQLiteRepo) List(ctx context.Context, key model.BookKey, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT path FROM files WHERE book = ? AND substr(path, 1, ?) = ? ORDER BY path`,
		key.String(), len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

type sqliteBook struct {
	repo *SQLiteRepo
	book string
}

func (b *sqliteBook) ReadFile(ctx context.Context, path string) (*File, error) {
	f := &File{Path: path}
	err := b.repo.db.QueryRowContext(ctx,
		`SELECT content, token FROM files WHERE book = ? AND path = ?
		 ORDER BY version DESC LIMIT 1`, b.book, path).Scan(&f.Content, &f.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (b *sqliteBook) WriteFile(ctx context.Context, path, content, expectedToken string) (string, error) {
	tx, err := b.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var prevID, prevToken string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT id, token, version FROM files WHERE book = ? AND path = ?
		 ORDER BY version DESC LIMIT 1`, b.book, path).Scan(&prevID, &prevToken, &prevVersion)

	version := 1
	var supersedes *string
	switch {
	case err == nil:
		if expectedToken != prevToken {
			return "", fmt.Errorf("%s: %w", path, ErrConflict)
		}
		version = prevVersion + 1
		supersedes = &prevID
	case errors.Is(err, sql.ErrNoRows):
		if expectedToken != "" {
			return "", fmt.Errorf("%s: %w", path, ErrConflict)
		}
	default:
		return "", err
	}

	token := Token(content)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO files (id, book, path, content, token, version, supersedes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.repo.newID(), b.book, path, content, token, version, supersedes,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert file: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return token, nil
}
