package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func memoryEnv(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("REGKB_BASE_DIR", base)
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("LOG_LEVEL", "error")
	return base
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "regkb version "+Version)
}

func TestAdd(t *testing.T) {
	base := memoryEnv(t)
	src := filepath.Join(t.TempDir(), "ISO_14971_2019.txt")
	require.NoError(t, os.WriteFile(src, []byte("ISO 14971 risk management for medical devices\n"), 0o644))

	out, err := run(t, "add", src, "--type", "Standard", "--jurisdiction", "iso", "--version", "2019")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported: "+src+" as document 1")

	archived, err := filepath.Glob(filepath.Join(base, "archive", "ISO", "*_ISO_14971_2019.txt"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestAdd_InvalidType(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "add", "missing.pdf", "--type", "standrd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean 'standard'?")
}

func TestSearch_Empty(t *testing.T) {
	memoryEnv(t)
	out, err := run(t, "search", "risk", "management")
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestStats(t *testing.T) {
	memoryEnv(t)
	out, err := run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 0 (0 latest)")
}

func TestDiff_Validation(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "diff", "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid document id "x"`)

	_, err = run(t, "diff", "1", "2", "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --format")

	_, err = run(t, "diff", "1", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReviewList_Empty(t *testing.T) {
	memoryEnv(t)
	out, err := run(t, "versions", "review", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No reviews")
}

func TestMigrate_RequiresPG(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate requires pg storage")
}
