// Package config loads aq settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lebinh/aq/internal/store"
)

// Provider kinds.
const (
	ProviderAWS     = "aws"
	ProviderFixture = "fixture"
)

// DefaultTTL is how long a loaded table is served before it is refetched.
const DefaultTTL = 300 * time.Second

// DefaultRegion is the namespace used when no region is configured.
const DefaultRegion = "us-east-1"

// FileName is the config file looked up in the data dir.
const FileName = "config.yaml"

// Config holds aq settings.
type Config struct {
	// DataDir holds one SQLite database per namespace. Empty keeps every
	// namespace in memory.
	DataDir string `yaml:"data_dir"`

	// DefaultNamespace is the namespace unqualified table names resolve
	// to. For the aws provider this is a region.
	DefaultNamespace string `yaml:"default_namespace"`

	// TTL is the freshness window of loaded tables.
	TTL time.Duration `yaml:"ttl"`

	// Provider selects where collections come from: "aws" or "fixture".
	Provider string `yaml:"provider"`

	// FixturePath is the YAML document the fixture provider serves.
	FixturePath string `yaml:"fixture"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DefaultDataDir returns ~/.aq, or "" if the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".aq")
}

// defaultNamespace returns the region from the AWS environment.
func defaultNamespace() string {
	for _, key := range []string{"AWS_REGION", "AWS_DEFAULT_REGION"} {
		if region := os.Getenv(key); region != "" {
			return region
		}
	}
	return DefaultRegion
}

// Load reads a config file. Unset fields take their defaults.
// ${VAR} references in the file are expanded from the environment.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a config document. Unset fields take their defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault loads <data dir>/config.yaml if it exists, and returns the
// defaults otherwise.
func LoadDefault() (*Config, error) {
	dir := DefaultDataDir()
	if dir == "" {
		return Default(), nil
	}
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = defaultNamespace()
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderAWS
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.TTL <= 0 {
		errs = append(errs, fmt.Sprintf("ttl must be positive, got %s", c.TTL))
	}
	if !store.ValidNamespace(c.DefaultNamespace) {
		errs = append(errs, fmt.Sprintf("default_namespace %q may only contain letters, digits, '_' and '-'", c.DefaultNamespace))
	}

	switch c.Provider {
	case ProviderAWS:
	case ProviderFixture:
		if c.FixturePath == "" {
			errs = append(errs, "fixture is required when provider is fixture")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown provider %q: must be %s or %s", c.Provider, ProviderAWS, ProviderFixture))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
