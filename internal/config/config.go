// Package config loads doccorpus settings from YAML
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvDBPath overrides Config.Database
const EnvDBPath = "DOCCORPUS_DB_PATH"

// DefaultDBPath is the database used when none is configured
const DefaultDBPath = "~/.doccorpus/doccorpus.db"

// Config holds every setting of a doccorpus process
type Config struct {
	// Build settings
	Workers int  `yaml:"workers"`
	Strict  bool `yaml:"strict"`
	Verbose bool `yaml:"verbose"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// Storage
	Database    string `yaml:"database"`
	FragmentDir string `yaml:"fragment_dir"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Workers:  runtime.NumCPU(),
		Strict:   true,
		LogLevel: "info",
		Database: DefaultDBPath,
	}
}

// Load reads a YAML file over the defaults. An empty path loads only the
// defaults. The environment override is applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if dbPath := os.Getenv(EnvDBPath); dbPath != "" {
		cfg.Database = dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings are usable
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database path missing"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
