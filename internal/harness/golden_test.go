package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	r := newTestRunner()

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, r, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	data, err := NewSnapshot("cmp", &Result{
		SQL:  "SELECT * FROM item WHERE price > $1",
		Args: []any{float64(3)},
	}).Marshal()
	require.NoError(t, err)

	assert.Contains(t, string(data), `"sql": "SELECT * FROM item WHERE price > $1"`)
	assert.NotContains(t, string(data), `\u003e`)
	assert.Contains(t, string(data), "\"args\": [\n    3\n  ]")
}

func TestSnapshot_EmptyArgs(t *testing.T) {
	snap := NewSnapshot("err", &Result{Code: "NO_SEARCH"})
	assert.Equal(t, []any{}, snap.Args)
	assert.Equal(t, "NO_SEARCH", snap.Error)

	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"sql"`)
}
