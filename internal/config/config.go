// Package config holds process-wide daemon settings for the rwasmvm
// runtime: the fields a caller needs to stand up the optional
// metrics/debug HTTP endpoint, configure logging, and pick defaults for
// ad-hoc invocations run through cmd/rwasmrun. It is modeled directly on
// oriys-nova's internal/config/config.go DefaultConfig()/LoadFromFile()/
// LoadFromEnv() shape, trimmed to what this runtime actually needs, and
// uses gopkg.in/yaml.v3 (also present in oriys-nova's go.mod) for the
// on-disk format instead of nova's JSON.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// MetricsConfig holds Prometheus metrics settings for internal/metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig holds structured logging settings for internal/logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// RuntimeDefaults holds the default RuntimeContext options cmd/rwasmrun
// applies when a flag is not given explicitly.
type RuntimeDefaults struct {
	FuelLimit uint32 `yaml:"fuel_limit"`
	CatchTrap bool   `yaml:"catch_trap"`
	IsShared  bool   `yaml:"is_shared"`
	CodeDir   string `yaml:"code_dir"` // directory cmd/rwasmrun resolves bare bytecode filenames against
}

// Config is the full daemon configuration.
type Config struct {
	Metrics MetricsConfig   `yaml:"metrics"`
	Logging LoggingConfig   `yaml:"logging"`
	Runtime RuntimeDefaults `yaml:"runtime"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9091",
			Namespace:  "rwasmvm",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Runtime: RuntimeDefaults{
			FuelLimit: 0,
			CatchTrap: true,
			IsShared:  false,
			CodeDir:   ".",
		},
	}
}

// LoadFromFile loads configuration from a YAML file, applying it on top
// of DefaultConfig so a file only needs to set the fields it overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to cfg in place.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("RWASMVM_METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("RWASMVM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RWASMVM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RWASMVM_CODE_DIR"); v != "" {
		cfg.Runtime.CodeDir = v
	}
}
