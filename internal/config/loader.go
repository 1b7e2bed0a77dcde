package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name of configuration files, without extension.
	ConfigFileName = "testflow"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "TESTFLOW"
)

// Loader loads configuration from files, the environment and defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a configuration loader on the global viper instance so
// cobra flag bindings are honored.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load resolves the configuration: .env bootstrap, then config file (if
// found), environment variables and defaults, then validation.
func (l *Loader) Load() (*Config, error) {
	return l.load("")
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
	}
	return l.load(configFile)
}

func (l *Loader) load(configFile string) (*Config, error) {
	// A .env next to the binary is a development convenience; absence is
	// not an error.
	_ = godotenv.Load()

	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}
	l.setupEnvironment()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// ConfigFileUsed returns the path of the config file that was read.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "testflow"))
	}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		l.v.AddConfigPath(filepath.Join(configDir, "testflow"))
	}
	l.v.AddConfigPath("/etc/testflow")
}

func (l *Loader) setupEnvironment() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout", defaults.Server.Timeout)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)

	l.v.SetDefault("models.dir", defaults.Models.Dir)
	l.v.SetDefault("models.encoder_path", defaults.Models.EncoderPath)
	l.v.SetDefault("models.decoder_path", defaults.Models.DecoderPath)
	l.v.SetDefault("models.vocab_path", defaults.Models.VocabPath)
	l.v.SetDefault("models.num_threads", defaults.Models.NumThreads)
	l.v.SetDefault("models.warmup", defaults.Models.Warmup)

	l.v.SetDefault("document.max_pages", defaults.Document.MaxPages)
	l.v.SetDefault("document.max_workers", defaults.Document.MaxWorkers)
	l.v.SetDefault("document.detect_threshold", defaults.Document.DetectThreshold)

	l.v.SetDefault("store.database_url", defaults.Store.DatabaseURL)

	l.v.SetDefault("cache.addr", defaults.Cache.Addr)
	l.v.SetDefault("cache.password", defaults.Cache.Password)
	l.v.SetDefault("cache.db", defaults.Cache.DB)
	l.v.SetDefault("cache.ttl", defaults.Cache.TTL)
}
