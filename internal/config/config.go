// Package config loads scriva's application configuration: a YAML file,
// then a .env file, then SCRIVA_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/scriva/internal/embedding"
)

// Config holds all scriva configuration.
type Config struct {
	// DBPath is the SQLite database backing every book.
	DBPath string `yaml:"db_path"`

	// Dir, when set, serves a single book from a local checkout instead of
	// the database.
	Dir string `yaml:"dir"`

	// Book is the default book key, owner/repo[/branch].
	Book string `yaml:"book"`

	Embedding embedding.Config `yaml:"embedding"`
	Logging   LoggingConfig    `yaml:"logging"`

	// CacheTTL is how long a loaded retrieval index stays cached.
	CacheTTL string `yaml:"cache_ttl"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath:   filepath.Join(home, ".scriva", "scriva.db"),
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		CacheTTL: "30m",
	}
}

// DefaultPath returns $SCRIVA_CONFIG or ~/.scriva/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("SCRIVA_CONFIG"); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".scriva", "config.yaml")
}

// Load reads the YAML file at path, loads .env from the working directory
// and applies environment overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	set := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	set("SCRIVA_DB", &c.DBPath)
	set("SCRIVA_DIR", &c.Dir)
	set("SCRIVA_BOOK", &c.Book)
	set("SCRIVA_EMBED_PROVIDER", &c.Embedding.Provider)
	set("SCRIVA_EMBED_MODEL", &c.Embedding.Model)
	set("SCRIVA_EMBED_URL", &c.Embedding.URL)
	set("SCRIVA_EMBED_API_KEY", &c.Embedding.APIKey)
	set("SCRIVA_LOG_LEVEL", &c.Logging.Level)
	set("SCRIVA_LOG_FORMAT", &c.Logging.Format)
	set("SCRIVA_CACHE_TTL", &c.CacheTTL)

	// Provider-native key variables fill in when no scriva key is set.
	if c.Embedding.APIKey == "" {
		switch c.Embedding.Provider {
		case "openai":
			c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		case "voyage":
			c.Embedding.APIKey = os.Getenv("VOYAGE_API_KEY")
		}
	}

	if v := os.Getenv("SCRIVA_EMBED_DIMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCRIVA_EMBED_DIMS: %w", err)
		}
		c.Embedding.Dims = n
	}
	return nil
}

// CacheTTLDuration returns the index cache TTL, falling back to 30 minutes
// when unset or invalid.
func (c *Config) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}
