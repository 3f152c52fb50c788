package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one request with its expected statement.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is a CUE schema directory. Relative paths are resolved
	// against the scenario file. Empty means the runner's catalog.
	Schema string `yaml:"schema,omitempty"`

	// Request is the request document, kept as a node so it is decoded
	// by package request.
	Request yaml.Node `yaml:"request"`

	// Expect is the statement the request must compile to.
	Expect Expect `yaml:"expect"`

	// Setup statements run on a fresh SQLite database; when present the
	// compiled statement is executed there too.
	Setup []string `yaml:"setup,omitempty"`

	// Assertions are extra checks on the statement or its execution.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect holds exact expectations. SQL and Args are compared only when
// set; Error names the PlanError code the request must fail with.
type Expect struct {
	SQL   string `yaml:"sql,omitempty"`
	Args  []any  `yaml:"args,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Assertion is a single check.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Text is the substring for sql_contains and sql_not_contains.
	Text string `yaml:"text,omitempty"`

	// Count is the expected number for arg_count, row_count and
	// affected_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains    = "sql_contains"
	AssertSQLNotContains = "sql_not_contains"
	AssertArgCount       = "arg_count"
	AssertRowCount       = "row_count"
	AssertAffectedCount  = "affected_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by file
// name. The first invalid file stops loading.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Request.Kind != yaml.MappingNode {
		return fmt.Errorf("request is required and must be a mapping")
	}
	if s.Expect.SQL == "" && s.Expect.Error == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("expect.sql, expect.error or assertions is required")
	}
	if s.Expect.Error != "" && (s.Expect.SQL != "" || len(s.Expect.Args) > 0) {
		return fmt.Errorf("expect.error cannot be combined with expect.sql or expect.args")
	}
	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema directory not found: %s", s.Schema)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Setup) > 0); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, executes bool) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSQLContains, AssertSQLNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertArgCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertRowCount, AssertAffectedCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
		if !executes {
			return fmt.Errorf("assertions[%d]: %s requires a setup section", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
