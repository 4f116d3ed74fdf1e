package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(original) })
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "schema.json", cfg.Files.Schema)
	assert.Equal(t, "schema_metadata.json", cfg.Files.Metadata)
	assert.Equal(t, "row_counts.json", cfg.Files.RowCounts)
	assert.Equal(t, "run_timestamps.json", cfg.Files.Runs)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.BaseURL)
	assert.Equal(t, "llama3", cfg.AI.Model)
	assert.Equal(t, "Brazilian Portuguese", cfg.AI.Language)
	assert.Equal(t, 4, cfg.AI.MaxConcurrent)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	yamlContent := `
files:
  schema: "erp_schema.json"
  metadata: "erp_metadata.json"
ai:
  provider: "anthropic"
  model: "claude-sonnet-4-5"
  max_concurrent: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	t.Setenv("SCHEMADOC_METADATA", "override.json")
	t.Setenv("SCHEMADOC_AI_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "erp_schema.json", cfg.Files.Schema)
	assert.Equal(t, "override.json", cfg.Files.Metadata)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.AI.Model)
	assert.Equal(t, 2, cfg.AI.MaxConcurrent)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.Equal(t, "row_counts.json", cfg.Files.RowCounts)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "provider", env: map[string]string{"SCHEMADOC_AI_PROVIDER": "bard"}},
		{name: "concurrency", env: map[string]string{"SCHEMADOC_AI_MAX_CONCURRENT": "0"}},
		{name: "log format", env: map[string]string{"SCHEMADOC_LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
