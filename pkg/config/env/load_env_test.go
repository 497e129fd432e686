package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REGKB_TEST_FROM_FILE=file\nREGKB_TEST_PRESET=file\n"), 0o644))

	t.Setenv("ENV_PATH", path)
	t.Setenv("REGKB_TEST_PRESET", "process")
	t.Cleanup(func() { _ = os.Unsetenv("REGKB_TEST_FROM_FILE") })

	require.NoError(t, LoadDotEnv("local", ".env"))

	assert.Equal(t, "file", os.Getenv("REGKB_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("REGKB_TEST_PRESET"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	t.Setenv("ENV_PATH", filepath.Join(t.TempDir(), "missing.env"))

	assert.NoError(t, LoadDotEnv("local", ".env"))
}

func TestLoadDotEnv_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REGKB_TEST_LEVEL=info\nREGKB_TEST_BASE=base\n"), 0o644))
	require.NoError(t, os.WriteFile(path+".prod", []byte("REGKB_TEST_LEVEL=warn\n"), 0o644))

	t.Setenv("ENV_PATH", path)
	t.Cleanup(func() {
		_ = os.Unsetenv("REGKB_TEST_LEVEL")
		_ = os.Unsetenv("REGKB_TEST_BASE")
	})

	require.NoError(t, LoadDotEnv("prod", ".env"))

	assert.Equal(t, "warn", os.Getenv("REGKB_TEST_LEVEL"))
	assert.Equal(t, "base", os.Getenv("REGKB_TEST_BASE"))
}
