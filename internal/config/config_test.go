package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader() *Loader {
	return &Loader{v: viper.New()}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Document.MaxPages)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"upload zero", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"pages zero", func(c *Config) { c.Document.MaxPages = 0 }},
		{"threshold above one", func(c *Config) { c.Document.DetectThreshold = 1.5 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoader_DefaultsWithoutFile(t *testing.T) {
	l := newTestLoader()
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoader_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testflow.yaml")
	content := "log_level: debug\nserver:\n  port: 9999\ndocument:\n  max_pages: 10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	l := newTestLoader()
	cfg, err := l.LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Document.MaxPages)
	// Untouched keys keep their defaults.
	assert.Equal(t, 32, cfg.Server.MaxUploadMB)
}

func TestLoader_MissingFileErrors(t *testing.T) {
	l := newTestLoader()
	_, err := l.LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoader_InvalidFileValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o600))

	l := newTestLoader()
	_, err := l.LoadWithFile(path)
	assert.ErrorContains(t, err, "validation failed")
}
