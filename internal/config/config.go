// Package config loads schemadoc settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile is read when no config path is given and it exists
const DefaultFile = "schemadoc.yaml"

// Config holds all configuration for schemadoc.
// Environment variables always override YAML values.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	Files    FilesConfig    `yaml:"files"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	AI       AIConfig       `yaml:"ai"`
}

// FilesConfig locates the persisted documents
type FilesConfig struct {
	Schema    string `yaml:"schema" env:"SCHEMADOC_SCHEMA" env-default:"schema.json"`
	Metadata  string `yaml:"metadata" env:"SCHEMADOC_METADATA" env-default:"schema_metadata.json"`
	RowCounts string `yaml:"row_counts" env:"SCHEMADOC_ROWCOUNTS" env-default:"row_counts.json"`
	Runs      string `yaml:"run_timestamps" env:"SCHEMADOC_RUNS" env-default:"run_timestamps.json"`
}

// DatabaseConfig points at the source database used for extraction,
// row counts and sample rows.
type DatabaseConfig struct {
	URL    string `yaml:"url" env:"SCHEMADOC_DATABASE_URL"`
	Schema string `yaml:"schema" env:"SCHEMADOC_DATABASE_SCHEMA"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `yaml:"level" env:"SCHEMADOC_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"SCHEMADOC_LOG_FORMAT" env-default:"console"`
}

// AIConfig selects the AI-suggestion provider
type AIConfig struct {
	Provider      string        `yaml:"provider" env:"SCHEMADOC_AI_PROVIDER" env-default:"openai"`
	BaseURL       string        `yaml:"base_url" env:"SCHEMADOC_AI_BASE_URL" env-default:"http://localhost:11434/v1"`
	Model         string        `yaml:"model" env:"SCHEMADOC_AI_MODEL" env-default:"llama3"`
	APIKey        string        `yaml:"-" env:"SCHEMADOC_AI_API_KEY"` // Secret - not in YAML
	Language      string        `yaml:"language" env:"SCHEMADOC_AI_LANGUAGE" env-default:"Brazilian Portuguese"`
	MaxConcurrent int           `yaml:"max_concurrent" env:"SCHEMADOC_AI_MAX_CONCURRENT" env-default:"4"`
	Timeout       time.Duration `yaml:"timeout" env:"SCHEMADOC_AI_TIMEOUT" env-default:"60s"`
	MaxRetries    int           `yaml:"max_retries" env:"SCHEMADOC_AI_MAX_RETRIES" env-default:"2"`
}

// Load reads path, or DefaultFile when path is empty. A missing DefaultFile
// is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	case errors.Is(statErr, fs.ErrNotExist) && !explicit:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, statErr)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.AI.Provider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("ai.provider must be openai or anthropic, got %q", c.AI.Provider)
	}
	if c.AI.MaxConcurrent < 1 {
		return fmt.Errorf("ai.max_concurrent must be at least 1")
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
