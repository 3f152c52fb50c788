package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGen_Stdout(t *testing.T) {
	out, err := execute(t, NewGenCommand(testOptions("text")), testSchema)
	require.NoError(t, err)

	assert.Contains(t, out, "// Code generated by sqlplan gen. DO NOT EDIT.")
	assert.Contains(t, out, "package catalog")
	assert.Contains(t, out, "ItemEntity")
	assert.Contains(t, out, "NoteEntity")
	assert.Contains(t, out, "func Catalog()")
}

func TestGen_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen", "catalog.go")
	out, err := execute(t, NewGenCommand(testOptions("text")), testSchema, "-o", path, "--package", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Generated 3 entities into "+path+" (package models)")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package models")
}

func TestGen_OutputFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.go")
	out, err := execute(t, NewGenCommand(testOptions("json")), testSchema, "-o", path)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   GenResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, GenResult{File: path, Package: "catalog", Entities: 3}, resp.Data)
}

func TestGen_EmptyPackage(t *testing.T) {
	_, err := execute(t, NewGenCommand(testOptions("text")), testSchema, "--package", "")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
