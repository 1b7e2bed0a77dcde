// Package config defines the application configuration and its loading from
// files, environment variables and defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the complete configuration of the formula recognition service.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Models   ModelsConfig   `mapstructure:"models" yaml:"models"`
	Document DocumentConfig `mapstructure:"document" yaml:"document"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	CORSOrigin      string        `mapstructure:"cors_origin" yaml:"cors_origin"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ModelsConfig contains recognition model settings.
type ModelsConfig struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	EncoderPath string `mapstructure:"encoder_path" yaml:"encoder_path"`
	DecoderPath string `mapstructure:"decoder_path" yaml:"decoder_path"`
	VocabPath   string `mapstructure:"vocab_path" yaml:"vocab_path"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads"`
	Warmup      bool   `mapstructure:"warmup" yaml:"warmup"`
}

// DocumentConfig contains document processing limits.
type DocumentConfig struct {
	MaxPages        int     `mapstructure:"max_pages" yaml:"max_pages"`
	MaxWorkers      int     `mapstructure:"max_workers" yaml:"max_workers"`
	DetectThreshold float64 `mapstructure:"detect_threshold" yaml:"detect_threshold"`
}

// StoreConfig selects and configures formula persistence. An empty
// DatabaseURL falls back to the in-memory store.
type StoreConfig struct {
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

// CacheConfig configures the optional Redis response cache. An empty Addr
// disables caching.
type CacheConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     32,
			Timeout:         60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Models: ModelsConfig{
			Dir:    "models",
			Warmup: true,
		},
		Document: DocumentConfig{
			MaxPages:        50,
			DetectThreshold: 0.4,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("invalid max upload size: %d MB", c.Server.MaxUploadMB)
	}
	if c.Document.MaxPages < 1 {
		return fmt.Errorf("invalid max pages: %d", c.Document.MaxPages)
	}
	if c.Document.DetectThreshold < 0 || c.Document.DetectThreshold > 1 {
		return fmt.Errorf("detect threshold out of range: %g", c.Document.DetectThreshold)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	return nil
}
