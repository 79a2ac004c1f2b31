// Package config provides YAML configuration loading with validation and
// environment variable substitution for the token generator's logging and
// metrics output. The token inputs themselves always come from the command
// line.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Warnings holds non-fatal config issues detected during loading.
	Warnings []string `yaml:"-" json:"-"`
}

// LoggingConfig holds diagnostic log settings. Stdout is reserved for the
// token, so logs go to stderr or a file.
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`               // "debug", "info", "warn", "error"; default: "warn"
	Format     string `yaml:"format" json:"format"`             // "json" or "text"; default: "json"
	Output     string `yaml:"output" json:"output"`             // "stderr" or file path; default: "stderr"
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`   // default: 100
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`   // default: 3
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"` // default: 30
}

// ToFile reports whether logs are written to a file rather than stderr.
func (l LoggingConfig) ToFile() bool {
	return l.Output != "stderr"
}

// MetricsConfig holds Prometheus textfile export settings.
type MetricsConfig struct {
	// Textfile is the path of a node_exporter textfile-collector file.
	// Empty disables metrics export.
	Textfile string `yaml:"textfile" json:"textfile"`
}

// IsEnabled returns whether a metrics textfile should be written.
func (m MetricsConfig) IsEnabled() bool {
	return m.Textfile != ""
}

// ValidLogLevels are the accepted logging.level strings.
var ValidLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns in s with the corresponding
// environment variable value. Unset variables are left as-is.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return match
	})
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads and parses a YAML configuration file, applies environment
// variable substitution, sets defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from raw YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.Warnings = collectWarnings(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 30
	}
}

func validate(cfg *Config) error {
	l := cfg.Logging
	if !ValidLogLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", l.Level)
	}
	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", l.Format)
	}
	if l.Output == "stdout" {
		return fmt.Errorf("logging.output cannot be stdout; stdout carries the token")
	}
	if l.ToFile() {
		if l.MaxSizeMB < 1 {
			return fmt.Errorf("logging.max_size_mb must be positive when output is a file path")
		}
		if l.MaxBackups < 0 {
			return fmt.Errorf("logging.max_backups must be non-negative")
		}
		if l.MaxAgeDays < 1 {
			return fmt.Errorf("logging.max_age_days must be positive when output is a file path")
		}
	}

	if cfg.Metrics.IsEnabled() && strings.HasSuffix(cfg.Metrics.Textfile, "/") {
		return fmt.Errorf("metrics.textfile must be a file path, got directory %q", cfg.Metrics.Textfile)
	}

	return nil
}

func collectWarnings(cfg *Config) []string {
	var warnings []string
	if strings.Contains(cfg.Metrics.Textfile, "${") {
		warnings = append(warnings, "metrics.textfile contains unresolved environment variable")
	}
	if strings.Contains(cfg.Logging.Output, "${") {
		warnings = append(warnings, "logging.output contains unresolved environment variable")
	}
	return warnings
}
