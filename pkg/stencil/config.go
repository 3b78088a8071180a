package stencil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used for dates and numbers when neither the variable nor
// the caller names one.
const DefaultLocale = "id"

// Config contains all configuration options for the Stencil engine
type Config struct {
	// CacheMaxSize is the maximum number of finalized templates to cache. 0 disables caching.
	CacheMaxSize int `yaml:"cache_max_size"`
	// CacheTTL is the time-to-live for cached templates. 0 means no expiration.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string `yaml:"log_level"`
	// DefaultLocale formats dates and numbers whose variable names no locale
	DefaultLocale string `yaml:"default_locale"`
	// MaxPackageSize caps uploaded packages in bytes. 0 means no limit.
	MaxPackageSize int64 `yaml:"max_package_size"`
	// StrictBindings turns bindings that name no variable into errors
	StrictBindings bool `yaml:"strict_bindings"`
	// DatabasePath is the sqlite file templates are stored in
	DatabasePath string `yaml:"database_path"`
	// OutputDir is where generated documents are written when no path is given
	OutputDir string `yaml:"output_dir"`
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	// Initialize global config from environment on first use
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CacheMaxSize:   100,
		CacheTTL:       0,
		LogLevel:       "info",
		DefaultLocale:  DefaultLocale,
		MaxPackageSize: 50 << 20,
		StrictBindings: false,
		DatabasePath:   "stencil.db",
		OutputDir:      ".",
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()
	applyEnvironment(config)
	return config
}

func applyEnvironment(config *Config) {
	// STENCIL_CACHE_MAX_SIZE
	if val := os.Getenv("STENCIL_CACHE_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.CacheMaxSize = size
		}
	}

	// STENCIL_CACHE_TTL
	if val := os.Getenv("STENCIL_CACHE_TTL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			config.CacheTTL = duration
		}
	}

	// STENCIL_LOG_LEVEL
	if val := os.Getenv("STENCIL_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// STENCIL_DEFAULT_LOCALE
	if val := os.Getenv("STENCIL_DEFAULT_LOCALE"); val != "" {
		config.DefaultLocale = val
	}

	// STENCIL_MAX_PACKAGE_SIZE
	if val := os.Getenv("STENCIL_MAX_PACKAGE_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.MaxPackageSize = size
		}
	}

	// STENCIL_STRICT_BINDINGS
	if val := os.Getenv("STENCIL_STRICT_BINDINGS"); val != "" {
		config.StrictBindings = parseBool(val)
	}

	// STENCIL_DB
	if val := os.Getenv("STENCIL_DB"); val != "" {
		config.DatabasePath = val
	}

	// STENCIL_OUTPUT_DIR
	if val := os.Getenv("STENCIL_OUTPUT_DIR"); val != "" {
		config.OutputDir = val
	}
}

// LoadConfigFile reads a YAML configuration file. Unset keys keep their
// defaults and STENCIL_* environment variables override the file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// WriteConfigFile stores the configuration as YAML, replacing path atomically.
func WriteConfigFile(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// NewConfigWithDefaults creates a new configuration with defaults applied to unset fields
func NewConfigWithDefaults(overrides *Config) *Config {
	defaults := DefaultConfig()

	if overrides == nil {
		return defaults
	}

	// Create a copy of the overrides
	config := *overrides

	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	if config.DefaultLocale == "" {
		config.DefaultLocale = defaults.DefaultLocale
	}

	if config.DatabasePath == "" {
		config.DatabasePath = defaults.DatabasePath
	}

	if config.OutputDir == "" {
		config.OutputDir = defaults.OutputDir
	}

	return &config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CacheMaxSize < 0 {
		return errors.New("cache max size cannot be negative")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache TTL cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	if c.MaxPackageSize < 0 {
		return errors.New("max package size cannot be negative")
	}

	if _, err := parseLocale(c.DefaultLocale); err != nil {
		return fmt.Errorf("invalid default locale: %w", err)
	}

	return nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	// Update logger based on new config (outside the lock to avoid deadlock)
	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
