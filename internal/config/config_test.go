package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/config"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile_DefaultsWhenMissing(t *testing.T) {
	base := t.TempDir()
	t.Setenv("STORAGE_TYPE", "memory")

	cfg, err := config.LoadFile(base, filepath.Join(base, "config", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 0.15, cfg.Versioning.MinSimilarity)
	assert.Equal(t, 3, cfg.Versioning.ContextLines)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Search.LatestOnly)
	assert.Equal(t, "english", cfg.Search.FTSConfig)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, filepath.Join(base, "archive"), cfg.ArchiveDir())
	assert.Equal(t, filepath.Join(base, "reports", "diffs"), cfg.DiffsDir())
	assert.Contains(t, cfg.Jurisdictions, "Health Canada")
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	path := writeYAML(t, `
versioning:
  min_similarity: 0.4
  context_lines: 5
storage:
  type: memory
paths:
  archive: /srv/regkb/archive
search:
  embedding:
    enabled: true
    timeout: 5s
`)
	t.Setenv("MIN_SIMILARITY", "0.25")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := config.LoadFile(t.TempDir(), path)
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.Versioning.MinSimilarity)
	assert.Equal(t, 5, cfg.Versioning.ContextLines)
	assert.Equal(t, "/srv/regkb/archive", cfg.ArchiveDir())
	assert.True(t, cfg.Search.Embedding.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Search.Embedding.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CorsOrigins)
}

func TestLoadFile_InvalidEnvValue(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("DIFF_CONTEXT_LINES", "three")

	_, err := config.LoadFile(t.TempDir(), filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DIFF_CONTEXT_LINES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"threshold above one", func(c *config.Config) { c.Versioning.MinSimilarity = 1.5 }, "min_similarity"},
		{"negative threshold", func(c *config.Config) { c.Versioning.MinSimilarity = -0.1 }, "min_similarity"},
		{"negative context", func(c *config.Config) { c.Versioning.ContextLines = -1 }, "context_lines"},
		{"port", func(c *config.Config) { c.Server.Port = "http" }, "port must be a number"},
		{"port range", func(c *config.Config) { c.Server.Port = "70000" }, "between 1 and 65535"},
		{"storage", func(c *config.Config) { c.Storage.Type = "sqlite" }, "invalid storage type"},
		{"pg without dsn", func(c *config.Config) { c.Storage.Type = "pg" }, "PG_CONNECTION_STRING"},
		{"backend", func(c *config.Config) { c.Search.Backend = "solr" }, "invalid search backend"},
		{"es incomplete", func(c *config.Config) { c.Search.Backend = config.SearchBackendES }, "elasticsearch"},
		{"log level", func(c *config.Config) { c.Log.Level = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Type = "memory"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var ve *apperr.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestNormalize(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "guidance", cfg.NormalizeDocumentType("GUIDANCE"))
	assert.Equal(t, "other", cfg.NormalizeDocumentType("memo"))
	assert.Equal(t, "Health Canada", cfg.NormalizeJurisdiction("health canada"))
	assert.Equal(t, "FDA", cfg.NormalizeJurisdiction("fda"))
	assert.Equal(t, "Other", cfg.NormalizeJurisdiction("Mars"))

	err := cfg.ValidateJurisdiction("helth canada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean 'Health Canada'?")
}

func TestValidateTerms(t *testing.T) {
	cfg := config.Default()

	assert.NoError(t, cfg.ValidateDocumentType("Regulation"))
	assert.NoError(t, cfg.ValidateJurisdiction("eu"))

	err := cfg.ValidateDocumentType("guidence")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid document type 'guidence'. Did you mean 'guidance'?")

	err = cfg.ValidateJurisdiction("Atlantis")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "Did you mean")
	assert.Contains(t, err.Error(), "Valid jurisdictions: EU, FDA")

	err = cfg.ValidateDocumentType("")
	require.Error(t, err)
	assert.Equal(t, "Document type cannot be empty", err.Error())
}

func TestCloseMatches(t *testing.T) {
	candidates := []string{"guidance", "standard", "regulation", "legislation"}

	assert.Equal(t, []string{"regulation"}, config.CloseMatches("regulaton", candidates, 1, 0.6))
	assert.Empty(t, config.CloseMatches("xyz", candidates, 3, 0.6))

	ranked := config.CloseMatches("lation", candidates, 0, 0.5)
	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"regulation", "legislation"}, ranked)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := config.LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("Dropped")
	logger.Warn("Kept", "id", 7)

	assert.NotContains(t, buf.String(), "Dropped")
	assert.Contains(t, buf.String(), `"msg":"Kept"`)
	assert.Contains(t, buf.String(), `"id":7`)
}
