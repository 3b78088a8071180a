package stencil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.CacheMaxSize != 100 {
		t.Errorf("DefaultConfig CacheMaxSize = %d, want 100", config.CacheMaxSize)
	}

	if config.CacheTTL != 0 {
		t.Errorf("DefaultConfig CacheTTL = %v, want 0", config.CacheTTL)
	}

	if config.LogLevel != "info" {
		t.Errorf("DefaultConfig LogLevel = %s, want info", config.LogLevel)
	}

	if config.DefaultLocale != "id" {
		t.Errorf("DefaultConfig DefaultLocale = %s, want id", config.DefaultLocale)
	}

	if config.StrictBindings {
		t.Errorf("DefaultConfig StrictBindings = true, want false")
	}

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig Validate() = %v", err)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, config *Config)
	}{
		{
			name: "cache max size",
			envVars: map[string]string{
				"STENCIL_CACHE_MAX_SIZE": "50",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheMaxSize != 50 {
					t.Errorf("CacheMaxSize = %d, want 50", config.CacheMaxSize)
				}
			},
		},
		{
			name: "cache TTL",
			envVars: map[string]string{
				"STENCIL_CACHE_TTL": "5m",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheTTL != 5*time.Minute {
					t.Errorf("CacheTTL = %v, want 5m", config.CacheTTL)
				}
			},
		},
		{
			name: "locale and database",
			envVars: map[string]string{
				"STENCIL_DEFAULT_LOCALE": "en-US",
				"STENCIL_DB":             "/tmp/templates.db",
			},
			check: func(t *testing.T, config *Config) {
				if config.DefaultLocale != "en-US" {
					t.Errorf("DefaultLocale = %s, want en-US", config.DefaultLocale)
				}
				if config.DatabasePath != "/tmp/templates.db" {
					t.Errorf("DatabasePath = %s, want /tmp/templates.db", config.DatabasePath)
				}
			},
		},
		{
			name: "strict bindings",
			envVars: map[string]string{
				"STENCIL_STRICT_BINDINGS": "TRUE",
			},
			check: func(t *testing.T, config *Config) {
				if !config.StrictBindings {
					t.Errorf("StrictBindings = false, want true")
				}
			},
		},
		{
			name: "max package size",
			envVars: map[string]string{
				"STENCIL_MAX_PACKAGE_SIZE": "1024",
			},
			check: func(t *testing.T, config *Config) {
				if config.MaxPackageSize != 1024 {
					t.Errorf("MaxPackageSize = %d, want 1024", config.MaxPackageSize)
				}
			},
		},
		{
			name: "invalid values keep defaults",
			envVars: map[string]string{
				"STENCIL_CACHE_MAX_SIZE":   "invalid",
				"STENCIL_CACHE_TTL":        "invalid",
				"STENCIL_MAX_PACKAGE_SIZE": "big",
			},
			check: func(t *testing.T, config *Config) {
				if config.CacheMaxSize != 100 {
					t.Errorf("CacheMaxSize = %d, want 100 (default)", config.CacheMaxSize)
				}
				if config.CacheTTL != 0 {
					t.Errorf("CacheTTL = %v, want 0 (default)", config.CacheTTL)
				}
				if config.MaxPackageSize != 50<<20 {
					t.Errorf("MaxPackageSize = %d, want default", config.MaxPackageSize)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}
			tt.check(t, ConfigFromEnvironment())
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides defaults", func(t *testing.T) {
		path := filepath.Join(dir, "stencil.yaml")
		content := "cache_max_size: 5\nlog_level: debug\ndefault_locale: en\nstrict_bindings: true\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		config, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if config.CacheMaxSize != 5 || config.LogLevel != "debug" || config.DefaultLocale != "en" || !config.StrictBindings {
			t.Errorf("LoadConfigFile() = %+v", config)
		}
		if config.DatabasePath != "stencil.db" {
			t.Errorf("DatabasePath = %s, want default", config.DatabasePath)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		config, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if config.CacheMaxSize != 100 {
			t.Errorf("CacheMaxSize = %d, want 100", config.CacheMaxSize)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.yaml")
		if err := os.WriteFile(path, []byte("max_render_depth: 3\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("LoadConfigFile() = nil error, want unknown field error")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), "invalid log level") {
			t.Errorf("LoadConfigFile() error = %v, want invalid log level", err)
		}
	})
}

func TestWriteConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stencil.yaml")
	want := DefaultConfig()
	want.CacheTTL = 90 * time.Second
	want.DefaultLocale = "en-GB"

	if err := WriteConfigFile(path, want); err != nil {
		t.Fatalf("WriteConfigFile() error = %v", err)
	}
	got, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if *got != *want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestNewConfigWithDefaults(t *testing.T) {
	overrides := &Config{
		CacheMaxSize: 200,
		LogLevel:     "debug",
	}

	config := NewConfigWithDefaults(overrides)

	if config.CacheMaxSize != 200 {
		t.Errorf("CacheMaxSize = %d, want 200", config.CacheMaxSize)
	}

	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", config.LogLevel)
	}

	// Check that defaults are applied for unset fields
	if config.DefaultLocale != DefaultLocale {
		t.Errorf("DefaultLocale = %s, want %s (default)", config.DefaultLocale, DefaultLocale)
	}

	if config.DatabasePath != "stencil.db" {
		t.Errorf("DatabasePath = %s, want stencil.db (default)", config.DatabasePath)
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func(modify func(*Config)) *Config {
		c := DefaultConfig()
		modify(c)
		return c
	}

	tests := []struct {
		name   string
		config *Config
		valid  bool
	}{
		{
			name:   "valid config",
			config: DefaultConfig(),
			valid:  true,
		},
		{
			name:   "logging off",
			config: valid(func(c *Config) { c.LogLevel = "off" }),
			valid:  true,
		},
		{
			name:   "negative cache size",
			config: valid(func(c *Config) { c.CacheMaxSize = -1 }),
			valid:  false,
		},
		{
			name:   "negative cache TTL",
			config: valid(func(c *Config) { c.CacheTTL = -time.Second }),
			valid:  false,
		},
		{
			name:   "invalid log level",
			config: valid(func(c *Config) { c.LogLevel = "invalid" }),
			valid:  false,
		},
		{
			name:   "negative max package size",
			config: valid(func(c *Config) { c.MaxPackageSize = -1 }),
			valid:  false,
		},
		{
			name:   "bad locale",
			config: valid(func(c *Config) { c.DefaultLocale = "not a locale" }),
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() returned error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Validate() returned nil, want error")
			}
		})
	}
}

func TestGlobalConfig(t *testing.T) {
	originalConfig := GetGlobalConfig()
	defer SetGlobalConfig(originalConfig)

	newConfig := DefaultConfig()
	newConfig.CacheMaxSize = 50
	newConfig.LogLevel = "error"
	SetGlobalConfig(newConfig)

	retrieved := GetGlobalConfig()
	if retrieved.CacheMaxSize != 50 {
		t.Errorf("CacheMaxSize = %d, want 50", retrieved.CacheMaxSize)
	}

	// The returned config is a copy
	retrieved.CacheMaxSize = 1
	if GetGlobalConfig().CacheMaxSize != 50 {
		t.Error("modifying the returned config changed the global config")
	}
}
