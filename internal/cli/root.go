// Package cli implements the scriva CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/scriva/internal/config"
	"github.com/rcliao/scriva/internal/embedding"
	"github.com/rcliao/scriva/internal/logging"
	"github.com/rcliao/scriva/internal/model"
	"github.com/rcliao/scriva/internal/repo"
	"github.com/rcliao/scriva/internal/retrieval"
	"github.com/rcliao/scriva/internal/state"
)

var (
	configPath string
	dbPath     string
	dirPath    string
	bookFlag   string
	formatFlag string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "scriva",
	Short: "Story memory and context compiler for AI-assisted fiction",
	Long: "scriva keeps a novel's world model, narrative state and voice next to the manuscript, " +
		"and compiles them into a token-budgeted briefing for every AI request.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $SCRIVA_CONFIG or ~/.scriva/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SCRIVA_DB or ~/.scriva/scriva.db)")
	RootCmd.PersistentFlags().StringVar(&dirPath, "dir", "", "Serve a single book from this checkout instead of the database")
	RootCmd.PersistentFlags().StringVarP(&bookFlag, "book", "b", "", "Book key owner/repo[/branch] (default: $SCRIVA_BOOK)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() *config.Config {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dirPath != "" {
		cfg.Dir = dirPath
	}
	if bookFlag != "" {
		cfg.Book = bookFlag
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg
}

// session is what a command needs to work on one book.
type session struct {
	cfg    *config.Config
	books  repo.Books
	lister repo.Lister
	db     *repo.SQLiteRepo // nil when serving a directory
	key    model.BookKey
	log    *zap.Logger
}

// openSession opens storage and resolves the book. With requireBook unset
// a missing book key is allowed and key stays zero.
func openSession(requireBook bool) *session {
	cfg := loadConfig()
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		exitErr("logger", err)
	}
	s := &session{cfg: cfg, log: log}

	if cfg.Dir != "" {
		d := repo.NewDirStore(cfg.Dir)
		s.books, s.lister = d, d
	} else {
		db, err := repo.NewSQLiteRepo(cfg.DBPath)
		if err != nil {
			exitErr("open db", err)
		}
		s.db, s.books, s.lister = db, db, db
	}

	switch {
	case cfg.Book != "":
		if s.key, err = model.ParseBookKey(cfg.Book); err != nil {
			exitErr("book", err)
		}
	case cfg.Dir != "":
		s.key = dirKey(cfg.Dir)
	case requireBook:
		exitErr("book", fmt.Errorf("--book or SCRIVA_BOOK is required"))
	}
	return s
}

// dirKey names a checkout-backed book after its directory.
func dirKey(dir string) model.BookKey {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return model.BookKey{Owner: "local", Repo: filepath.Base(dir), Branch: "main"}
}

func (s *session) Close() {
	_ = s.log.Sync()
	if s.db != nil {
		s.db.Close()
	}
}

func (s *session) store() *state.Store {
	return state.New(s.books.Book(s.key))
}

func (s *session) book(ctx context.Context) (model.Book, model.ScrivaConfig) {
	b, cfg, err := s.store().LoadBook(ctx, s.key)
	if err != nil {
		exitErr("load book", err)
	}
	return b, cfg
}

// engine returns the retrieval engine, or nil when no embedding provider
// is configured.
func (s *session) engine() *retrieval.Engine {
	emb, err := embedding.NewFromConfig(s.cfg.Embedding)
	if err != nil {
		exitErr("embedding provider", err)
	}
	if emb == nil {
		return nil
	}
	return retrieval.NewEngine(s.books, emb, retrieval.NewCache(s.cfg.CacheTTLDuration()), s.log)
}

// mustEngine is engine for commands that cannot run without one.
func (s *session) mustEngine() *retrieval.Engine {
	e := s.engine()
	if e == nil {
		exitErr("retrieval", fmt.Errorf("%w (set embedding.provider or SCRIVA_EMBED_PROVIDER)", retrieval.ErrNoEmbedder))
	}
	return e
}

// readContent takes content from the positional args, else from piped stdin.
func readContent(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, err := stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return "", nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
