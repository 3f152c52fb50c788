package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlplan/internal/testutil"
)

func newTestRunner() *Runner {
	return NewRunner(WithCatalog(testutil.Catalog()))
}

func inlineScenario(t *testing.T, src string) *Scenario {
	t.Helper()
	var s Scenario
	require.NoError(t, yaml.Unmarshal([]byte(src), &s))
	return &s
}

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	r := newTestRunner()

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := r.Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ExecutesWithSetup(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/04_soft_delete.yaml")
	require.NoError(t, err)

	result, err := newTestRunner().Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Executed)
	assert.Equal(t, int64(2), result.Affected)
}

func TestRun_BuildErrorCode(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/03_undeclared_join.yaml")
	require.NoError(t, err)

	result, err := newTestRunner().Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "UNDECLARED_JOIN", result.Code)
	assert.Empty(t, result.SQL)
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := inlineScenario(t, `
name: wrong_code
description: d
request:
  entity: Item
  filter: {material.name: {eq: x}}
expect:
  error: BAD_PAGINATION
`)
	result, err := newTestRunner().Run(context.Background(), s)
	require.NoError(t, err)
	require.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error BAD_PAGINATION")
}

func TestRun_UnexpectedBuildError(t *testing.T) {
	s := inlineScenario(t, `
name: unexpected
description: d
request:
  entity: Item
  filter: {material.name: {eq: x}}
expect:
  sql: "SELECT * FROM item"
`)
	result, err := newTestRunner().Run(context.Background(), s)
	require.NoError(t, err)
	require.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "request failed to build")
}

func TestRun_ExpectedErrorButBuilt(t *testing.T) {
	s := inlineScenario(t, `
name: built
description: d
request: {entity: Item}
expect:
  error: UNDECLARED_JOIN
`)
	result, err := newTestRunner().Run(context.Background(), s)
	require.NoError(t, err)
	require.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "request built successfully")
	assert.Equal(t, "SELECT * FROM item", result.SQL)
}

func TestRun_SQLMismatch(t *testing.T) {
	s := inlineScenario(t, `
name: mismatch
description: d
request: {entity: Item}
expect:
  sql: "SELECT id FROM item"
`)
	result, err := newTestRunner().Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 1)
}

func TestRun_ExecutionFailureIsReported(t *testing.T) {
	s := inlineScenario(t, `
name: no_table
description: d
request: {entity: Item}
expect:
  sql: "SELECT * FROM item"
setup:
  - "CREATE TABLE other (id TEXT)"
`)
	result, err := newTestRunner().Run(context.Background(), s)
	require.NoError(t, err)
	require.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "execution failed")
	assert.False(t, result.Executed)
}

func TestRun_BadSetupIsAnError(t *testing.T) {
	s := inlineScenario(t, `
name: bad_setup
description: d
request: {entity: Item}
expect:
  sql: "SELECT * FROM item"
setup:
  - "NOT SQL"
`)
	_, err := newTestRunner().Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup[0]")
}

func TestRun_NoCatalog(t *testing.T) {
	s := inlineScenario(t, "name: n\ndescription: d\nrequest: {entity: Item}\nexpect: {sql: x}\n")
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no catalog")
}

func TestRun_UndecodableRequest(t *testing.T) {
	s := inlineScenario(t, "name: n\ndescription: d\nrequest: {entity: Item, where: {}}\nexpect: {sql: x}\n")
	_, err := newTestRunner().Run(context.Background(), s)
	require.Error(t, err)
}
