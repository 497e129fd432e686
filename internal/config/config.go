// Package config loads the knowledge base configuration: built-in defaults,
// then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DjordjeVuckovic/regkb/pkg/config/env"
)

const (
	EnvBaseDir = "REGKB_BASE_DIR"
	EnvConfig  = "REGKB_CONFIG"

	SearchBackendStore = "store"
	SearchBackendES    = "es"
)

type Config struct {
	Env     string `yaml:"env"`
	BaseDir string `yaml:"-"`

	Paths         PathsConfig      `yaml:"paths"`
	DocumentTypes []string         `yaml:"document_types"`
	Jurisdictions []string         `yaml:"jurisdictions"`
	Import        ImportConfig     `yaml:"import"`
	Versioning    VersioningConfig `yaml:"versioning"`
	Search        SearchConfig     `yaml:"search"`
	Storage       StorageConfig    `yaml:"storage"`
	Server        ServerConfig     `yaml:"server"`
	NATS          NATSConfig       `yaml:"nats"`
	S3            S3Config         `yaml:"s3"`
	Log           LogConfig        `yaml:"log"`
}

// PathsConfig entries are relative to the base directory unless absolute.
type PathsConfig struct {
	Archive   string `yaml:"archive"`
	Extracted string `yaml:"extracted"`
	Diffs     string `yaml:"diffs"`
	Backups   string `yaml:"backups"`
	Pending   string `yaml:"pending"`
}

type ImportConfig struct {
	ExtractText   bool          `yaml:"extract_text"`
	IndexOnImport bool          `yaml:"index_on_import"`
	Patterns      []string      `yaml:"patterns"`
	PDFToText     string        `yaml:"pdftotext"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

type VersioningConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
	ContextLines  int     `yaml:"context_lines"`
}

type SearchConfig struct {
	DefaultLimit int             `yaml:"default_limit"`
	LatestOnly   bool            `yaml:"latest_only"`
	Backend      string          `yaml:"backend"`
	FTSConfig    string          `yaml:"fts_config"`
	BatchSize    int             `yaml:"batch_size"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	ES           ESConfig        `yaml:"es"`
}

type EmbeddingConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxLength int           `yaml:"max_length"`
}

type ESConfig struct {
	Addresses []string `yaml:"addresses"`
	IndexName string   `yaml:"index_name"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
}

type StorageConfig struct {
	Type     string `yaml:"type"`
	ConnStr  string `yaml:"conn_str"`
	MaxConns int32  `yaml:"max_conns"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	UseHTTP2    bool     `yaml:"use_http2"`
	CorsOrigins []string `yaml:"cors_origins"`
}

// NATSConfig is disabled when URL is empty.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// S3Config is disabled when Bucket is empty.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Env: "local",
		Paths: PathsConfig{
			Archive:   "archive",
			Extracted: "extracted",
			Diffs:     "reports/diffs",
			Backups:   "db/backups",
			Pending:   "pending",
		},
		DocumentTypes: []string{
			"guidance", "standard", "regulation", "legislation", "policy",
			"procedure", "report", "white_paper", "other",
		},
		Jurisdictions: []string{
			"EU", "FDA", "ISO", "ICH", "UK", "Ireland", "WHO",
			"Health Canada", "TGA", "PMDA", "Other",
		},
		Import: ImportConfig{
			ExtractText:   true,
			IndexOnImport: true,
			WatchDebounce: 500 * time.Millisecond,
		},
		Versioning: VersioningConfig{
			MinSimilarity: 0.15,
			ContextLines:  3,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			LatestOnly:   true,
			Backend:      SearchBackendStore,
			FTSConfig:    "english",
			BatchSize:    16,
			Embedding: EmbeddingConfig{
				Model:   "nomic-embed-text",
				BaseURL: "http://localhost:11434",
				Timeout: 30 * time.Second,
			},
			ES: ESConfig{IndexName: "regkb_documents"},
		},
		Storage: StorageConfig{Type: "pg"},
		Server: ServerConfig{
			Port:        "8080",
			CorsOrigins: []string{"*"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads .env, the YAML file and the environment, then validates.
func Load() (*Config, error) {
	if err := env.LoadDotEnv(os.Getenv("ENV"), ".env"); err != nil {
		slog.Info("Skipping .env ...", "error", err)
	}

	base := os.Getenv(EnvBaseDir)
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve base dir: %w", err)
		}
		base = wd
	}

	path := os.Getenv(EnvConfig)
	if path == "" {
		path = filepath.Join(base, "config", "config.yaml")
	}
	return LoadFile(base, path)
}

// LoadFile is Load with an explicit base dir and YAML path. A missing file
// is not an error.
func LoadFile(baseDir, path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("No config file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base dir: %w", err)
	}
	cfg.BaseDir = abs

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

func (c *Config) ArchiveDir() string   { return c.path(c.Paths.Archive) }
func (c *Config) ExtractedDir() string { return c.path(c.Paths.Extracted) }
func (c *Config) DiffsDir() string     { return c.path(c.Paths.Diffs) }
func (c *Config) BackupsDir() string   { return c.path(c.Paths.Backups) }
func (c *Config) PendingDir() string   { return c.path(c.Paths.Pending) }
