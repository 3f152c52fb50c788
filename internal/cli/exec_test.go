package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlplan/internal/store"
)

// noteDB creates a SQLite file with two live notes and one deleted.
func noteDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notes.db")
	st, err := store.OpenSQLite(path)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.DB().Exec(`
CREATE TABLE note (id TEXT PRIMARY KEY, body TEXT, deleted_at TEXT);
INSERT INTO note (id, body, deleted_at) VALUES
	('n1', 'first', NULL),
	('n2', 'second', NULL),
	('n0', 'gone', '2024-01-01T00:00:00Z');
`)
	require.NoError(t, err)
	return path
}

func TestExec_SQLiteRead(t *testing.T) {
	db := noteDB(t)
	out, err := execute(t, NewExecCommand(testOptions("text")),
		"--schema", testSchema, "--sqlite", db, "testdata/requests/notes.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "SELECT * FROM note WHERE deleted_at IS NULL;")
	assert.Contains(t, out, "body=first")
	assert.NotContains(t, out, "gone")
	assert.Contains(t, out, "(2 row(s))")
}

func TestExec_SQLiteInsertJSON(t *testing.T) {
	db := noteDB(t)
	out, err := execute(t, NewExecCommand(testOptions("json")),
		"--schema", testSchema, "--sqlite", db, "testdata/requests/new_note.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ExecResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "INSERT INTO note (id, body) VALUES ($1, $2) RETURNING *", resp.Data.SQL)
	assert.Equal(t, int64(1), resp.Data.Affected)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "hello", resp.Data.Rows[0]["body"])
}

func TestExec_DryRun(t *testing.T) {
	out, err := execute(t, NewExecCommand(testOptions("text")),
		"--schema", testSchema, "--dry-run", "testdata/requests/cheap_items.yaml")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM item WHERE price < $1 ORDER BY name ASC;\n-- args: $1=5\n", out)
}

func TestExec_NoDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	out, err := execute(t, NewExecCommand(testOptions("text")),
		"--schema", testSchema, "testdata/requests/notes.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "no database url")
}

func TestExec_RejectedRequest(t *testing.T) {
	out, err := execute(t, NewExecCommand(testOptions("json")),
		"--schema", testSchema, "--dry-run", "testdata/requests/undeclared.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodePlan, resp.Error.Code)
}

func TestExec_MissingTable(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	out, err := execute(t, NewExecCommand(testOptions("text")),
		"--schema", testSchema, "--sqlite", db, "testdata/requests/notes.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeDatabase)
}

func TestFormatRow_SortedColumns(t *testing.T) {
	assert.Equal(t, "a=1 b=x", formatRow(store.Row{"b": "x", "a": 1}))
}
