package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingOptionalFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), DefaultConfigFile), false)
	require.NoError(t, err)
	assert.Equal(t, "schema", cfg.Paths.Schema)
	assert.Equal(t, "scenarios", cfg.Paths.Scenarios)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
}

func TestLoadConfig_MissingRequiredFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	path := writeConfig(t, `
database:
  url: postgres://file/db
paths:
  schema: cue
`)
	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/db", cfg.Database.URL)
	assert.Equal(t, "cue", cfg.Paths.Schema)
	assert.Equal(t, "scenarios", cfg.Paths.Scenarios)
}

func TestLoadConfig_EmptyURLFallsBackToEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	path := writeConfig(t, "database:\n  url: \"\"\n")
	cfg, err := LoadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""), true)
	require.NoError(t, err)
	assert.Equal(t, "schema", cfg.Paths.Schema)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "paths:\n  schemas: x\n"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestRootOptions_ConfigIsCached(t *testing.T) {
	opts := &RootOptions{ConfigPath: writeConfig(t, "paths:\n  schema: first\n")}
	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Paths.Schema)

	require.NoError(t, os.WriteFile(opts.ConfigPath, []byte("paths:\n  schema: second\n"), 0o644))
	cfg, err = opts.Config()
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Paths.Schema)
}
