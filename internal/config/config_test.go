package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "text", cfg.Format)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "ZA", cfg.SBS.Country)
	assert.Equal(t, "en", cfg.SBS.Language)
	assert.Equal(t, "GENQ", cfg.SBS.Queue)
	assert.Equal(t, 4, cfg.SBS.DetailConcurrency)
	assert.Equal(t, "errjobs.db", cfg.Store.Path)
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(tmpDir))
		t.Cleanup(func() {
			require.NoError(t, os.Chdir(origDir))
		})

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "text", cfg.Format)
		assert.Equal(t, "GENQ", cfg.SBS.Queue)
	})

	t.Run("environment overrides file and defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		origDir, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(tmpDir))
		t.Cleanup(func() {
			require.NoError(t, os.Chdir(origDir))
		})

		configContent := `
sbs:
  base_url: "https://file.example"
  queue: FILEQ
`
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".errjobs.yaml"), []byte(configContent), 0644))

		t.Setenv("SBS_BASE_URL", "https://env.example")
		t.Setenv("SBS_USERNAME", "svc_errjobs")
		t.Setenv("SBS_NO_VERIFY_SSL", "1")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://env.example", cfg.SBS.BaseURL)
		assert.Equal(t, "svc_errjobs", cfg.SBS.Username)
		assert.True(t, cfg.SBS.NoVerifySSL)
		// file value survives where no env override exists
		assert.Equal(t, "FILEQ", cfg.SBS.Queue)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("loads config from file", func(t *testing.T) {
		tmpDir := t.TempDir()

		configContent := `
format: ndjson
verbose: true
sbs:
  base_url: "https://sbs.example/api"
  database_id: "PRD1"
  detail_concurrency: 8
store:
  path: "/tmp/errjobs-test.db"
`
		configPath := filepath.Join(tmpDir, "errjobs.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "ndjson", cfg.Format)
		assert.True(t, cfg.Verbose)
		assert.Equal(t, "https://sbs.example/api", cfg.SBS.BaseURL)
		assert.Equal(t, "PRD1", cfg.SBS.DatabaseID)
		assert.Equal(t, 8, cfg.SBS.DetailConcurrency)
		assert.Equal(t, "/tmp/errjobs-test.db", cfg.Store.Path)
		// untouched fields keep their defaults
		assert.Equal(t, "GENQ", cfg.SBS.Queue)
	})
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(origDir))
	})

	assert.Empty(t, ConfigFile())

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".errjobs.yaml"), []byte("format: text\n"), 0644))
	assert.Equal(t, filepath.Join(tmpDir, ".errjobs.yaml"), ConfigFile())
}
