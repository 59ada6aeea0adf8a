package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lebinh/aq/internal/provider/fixture"
)

// Scenario defines a sequence of queries run against a fixture provider
// with a controlled clock.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// TTL is the engine's freshness window. Defaults to 300s.
	TTL time.Duration `yaml:"ttl,omitempty"`

	// DefaultNamespace defaults to "local".
	DefaultNamespace string `yaml:"default_namespace,omitempty"`

	// Collections are served by the fixture provider.
	Collections []fixture.CollectionSpec `yaml:"collections,omitempty"`

	// Fixture is a fixture file to load collections from instead, relative
	// to the scenario file.
	Fixture string `yaml:"fixture,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// Step advances the clock and then runs a query.
type Step struct {
	// Advance moves the clock forward before the query runs.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Query is the statement to execute.
	Query string `yaml:"query"`

	// Expect is checked against the outcome. If nil, the step only has to
	// not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Columns must match exactly, when set.
	Columns []string `yaml:"columns,omitempty"`

	// Rows must match exactly, in order, when set. Use an empty list to
	// expect no rows.
	Rows [][]any `yaml:"rows,omitempty"`

	// Fetches counts provider List calls made by this step per table.
	// Keys are "table" for the default namespace or "namespace.table".
	// Tables not listed must not have been fetched.
	Fetches map[string]int `yaml:"fetches,omitempty"`

	// Error is the expected error code (PARSING_ERROR, UNKNOWN_COLLECTION,
	// PROVIDER_ERROR, EXECUTION_ERROR, STORAGE_ERROR).
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Fixture != "" && !filepath.IsAbs(scenario.Fixture) {
		scenario.Fixture = filepath.Join(filepath.Dir(path), scenario.Fixture)
	}
	return scenario, nil
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validErrorCodes are the codes an expect clause may name.
var validErrorCodes = map[string]bool{
	ErrCodeParsing:       true,
	"UNKNOWN_COLLECTION": true,
	"PROVIDER_ERROR":     true,
	"EXECUTION_ERROR":    true,
	"STORAGE_ERROR":      true,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.TTL < 0 {
		return fmt.Errorf("ttl must not be negative")
	}
	if len(s.Collections) > 0 && s.Fixture != "" {
		return fmt.Errorf("collections and fixture are mutually exclusive")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Query == "" {
			return fmt.Errorf("steps[%d]: query is required", i)
		}
		if step.Advance < 0 {
			return fmt.Errorf("steps[%d]: advance must not be negative", i)
		}
		if step.Expect == nil {
			continue
		}
		if step.Expect.Error != "" {
			if !validErrorCodes[step.Expect.Error] {
				return fmt.Errorf("steps[%d]: unknown error code %q", i, step.Expect.Error)
			}
			if step.Expect.Columns != nil || step.Expect.Rows != nil {
				return fmt.Errorf("steps[%d]: columns and rows cannot be expected with an error", i)
			}
		}
	}
	return nil
}
