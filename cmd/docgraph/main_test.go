package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// badgerConfig writes a docgraph.yaml selecting a badger store under dir.
func badgerConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeFile(t, dir, "docgraph.yaml", `
store:
  type: badger
  graph: people
  path: `+filepath.Join(dir, "db")+`
ingest:
  root_label: person
  fingerprint: md5
log:
  level: error
`)
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"explode"}},
		{name: "unknown global flag", args: []string{"-nope", "drop"}},
		{name: "ingest without files", args: []string{"ingest"}},
		{name: "decompose without file", args: []string{"decompose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runCLI(t, tt.args...)
			require.ErrorIs(t, err, errUsage)
			assert.Contains(t, stderr, "Usage: docgraph")
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	_, _, err := runCLI(t, "-store", "cassandra", "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cassandra")
}

func TestRun_Demo(t *testing.T) {
	stdout, _, err := runCLI(t, "-log-level", "error", "demo")
	require.NoError(t, err)

	want := `MATCH (n)-[r]->(m) RETURN n, r, m
(parent {a: 'A'}) [:girl] (girl {g: 'G'})
(parent {a: 'A'}) [:boy] (boy {b: 'B'})
(boy {b: 'B'}) [:friend] (friend {f: 'F1'})
(boy {b: 'B'}) [:friend] (friend {f: 'F2'})
MATCH (n) RETURN n
(parent {a: 'A'})
(girl {g: 'G'})
(boy {b: 'B'})
(friend {f: 'F1'})
(friend {f: 'F2'})
`
	assert.Equal(t, want, stdout)
}

func TestRun_Decompose(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.yaml", "name: Ada\nfriends:\n  - name: Alan\n")

	stdout, _, err := runCLI(t, "decompose", "-label", "person", path)
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &tree))
	assert.Equal(t, "person", tree["label"])
	assert.Equal(t, map[string]any{"name": "Ada"}, tree["properties"])
	assert.NotEmpty(t, tree["identity"])
}

func TestRun_IngestQueryDrop(t *testing.T) {
	dir := t.TempDir()
	cfg := badgerConfig(t, dir)
	doc := writeFile(t, dir, "ada.json", `{"name":"Ada","friends":[{"name":"Alan"},{"name":"Grace"}]}`)

	stdout, _, err := runCLI(t, "-config", cfg, "ingest", doc)
	require.NoError(t, err)

	var report struct {
		File      string `json:"file"`
		RootLabel string `json:"root_label"`
		Nodes     int    `json:"nodes"`
		Edges     int    `json:"edges"`
		Committed bool   `json:"committed"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, doc, report.File)
	assert.Equal(t, "person", report.RootLabel)
	assert.Equal(t, 3, report.Nodes)
	assert.Equal(t, 2, report.Edges)
	assert.True(t, report.Committed)

	// The graph survives reopening the database.
	stdout, _, err = runCLI(t, "-config", cfg, "query", "-label", "friends")
	require.NoError(t, err)
	assert.Equal(t, "(friends {name: 'Alan'})\n(friends {name: 'Grace'})\n", stdout)

	stdout, _, err = runCLI(t, "-config", cfg, "query", "-edges")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, "[:friends]"))

	stdout, _, err = runCLI(t, "-config", cfg, "drop")
	require.NoError(t, err)
	assert.Equal(t, "Graph people dropped.\n", stdout)

	stdout, _, err = runCLI(t, "-config", cfg, "query", "MATCH (n) RETURN n")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestRun_QueryJSON(t *testing.T) {
	stdout, _, err := runCLI(t, "query", "-json")
	require.NoError(t, err)

	var res struct {
		Columns []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, []string{"n"}, res.Columns)
}

func TestRun_IngestErrors(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "list.json", `[{"a":1}]`)

	_, _, err := runCLI(t, "ingest", list)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list.json")

	_, _, err = runCLI(t, "ingest", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestRun_Check(t *testing.T) {
	stdout, _, err := runCLI(t, "check")
	require.NoError(t, err)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.Equal(t, "healthy", status["status"])
}

func TestRun_CheckBadger(t *testing.T) {
	dir := t.TempDir()
	cfg := badgerConfig(t, dir)

	// Opening the store creates the directory the file check looks at.
	_, _, err := runCLI(t, "-config", cfg, "query")
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "-config", cfg, "check")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status": "healthy"`)
}
