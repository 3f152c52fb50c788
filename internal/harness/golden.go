package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the golden form of a scenario's statement.
type Snapshot struct {
	Scenario string `json:"scenario"`
	SQL      string `json:"sql,omitempty"`
	Args     []any  `json:"args"`
	Error    string `json:"error,omitempty"`
}

// NewSnapshot captures a result.
func NewSnapshot(name string, result *Result) Snapshot {
	args := result.Args
	if args == nil {
		args = []any{}
	}
	return Snapshot{
		Scenario: name,
		SQL:      result.SQL,
		Args:     args,
		Error:    result.Code,
	}
}

// Marshal renders the snapshot as indented JSON. HTML escaping is off so
// comparison operators stay readable in golden files.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its statement against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the statement doesn't match the golden file.
func RunWithGolden(t *testing.T, r *Runner, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := r.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
