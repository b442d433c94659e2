package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "openai", cfg.AI.DefaultProvider)
	assert.Equal(t, 30*time.Second, cfg.AI.RequestTimeout)
	assert.Equal(t, 120*time.Second, cfg.AI.OllamaTimeout)
	assert.Equal(t, 3, cfg.Structure.MaxAttempts)
	assert.Equal(t, 5, cfg.Literature.MaxPapers)
	assert.Equal(t, int64(50<<20), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, []string{".pdf", ".docx", ".txt"}, cfg.Upload.AllowedExts)
	assert.Equal(t, 100, cfg.History.MaxEntries)
	assert.Equal(t, "chemscribe:", cfg.Redis.KeyPrefix)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Structure.MaxAttempts = 5
	cfg.AI.DefaultProvider = "ollama"
	ApplyDefaults(cfg)

	assert.Equal(t, 5, cfg.Structure.MaxAttempts)
	assert.Equal(t, "ollama", cfg.AI.DefaultProvider)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		ApplyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"bad mode", func(c *Config) { c.Server.Mode = "production" }},
		{"bad provider", func(c *Config) { c.AI.DefaultProvider = "anthropic" }},
		{"bad source", func(c *Config) { c.Literature.DefaultSource = "pubmed" }},
		{"zero attempts", func(c *Config) { c.Structure.MaxAttempts = 0 }},
		{"zero upload limit", func(c *Config) { c.Upload.MaxSizeBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p",
		DBName: "chemscribe", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5432/chemscribe?sslmode=disable", d.DSN())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
  mode: debug
ai:
  default_provider: gemini
structure:
  max_attempts: 4
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "gemini", cfg.AI.DefaultProvider)
	assert.Equal(t, 4, cfg.Structure.MaxAttempts)
	// Unspecified fields fall back to defaults.
	assert.Equal(t, 5, cfg.Literature.MaxPapers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHEMSCRIBE_SERVER_PORT", "7070")
	t.Setenv("CHEMSCRIBE_AI_DEFAULT_PROVIDER", "ollama")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.AI.DefaultProvider)
}
