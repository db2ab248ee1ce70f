// Package config loads the client configuration from a YAML file with
// environment variable overrides, and reads the API token from a local
// token file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Token-file failures are distinct so callers can tell a missing file from
// a present-but-empty one.
var (
	ErrTokenFileNotFound = errors.New("token file not found")
	ErrTokenEmpty        = errors.New("token file is empty")
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the Tinkoff client.
type Config struct {
	Invest  Invest  `yaml:"invest"`
	Logging Logging `yaml:"logging"`
}

// Invest holds credentials and endpoint settings for the Invest API
// gateway.
type Invest struct {
	TokenFile       string `yaml:"token_file"`
	BaseURL         string `yaml:"base_url"`
	MaxAttempts     int    `yaml:"max_attempts"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{
		Invest: Invest{
			TokenFile:       "TOKEN.txt",
			MaxAttempts:     3,
			RateLimitPerMin: 120,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// Load reads the YAML configuration file at the given path, parses it into
// a Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TINKOFF_TOKEN_FILE"); v != "" {
		cfg.Invest.TokenFile = v
	}
	if v := os.Getenv("TINKOFF_BASE_URL"); v != "" {
		cfg.Invest.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// LoadToken reads the API token from the first line of the file at path.
// A missing file yields ErrTokenFileNotFound; a present file whose first
// line is blank yields ErrTokenEmpty.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTokenFileNotFound, path)
		}
		return "", err
	}

	line, _, _ := strings.Cut(string(data), "\n")
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("%w: %s", ErrTokenEmpty, path)
	}
	return token, nil
}
