package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: buckets
description: "buckets are listed by name"
collections:
  - resource: s3
    collection: buckets
    identifiers: [name]
    items:
      - name: logs
      - name: assets
steps:
  - query: select name from s3_buckets order by name
    expect:
      rows: [[assets], [logs]]
      fetches: {s3_buckets: 1}
`

const failingScenario = `name: wrong-count
description: "expects a row that is not there"
collections:
  - resource: s3
    collection: buckets
    identifiers: [name]
    items:
      - name: logs
steps:
  - query: select count(*) from s3_buckets
    expect:
      rows: [[2]]
`

// writeScenarios creates a scenario directory holding files.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommand_Pass(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"buckets.yaml": passingScenario})

	stdout, _, err := runCommand(t, "", "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ buckets")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommand_Fail(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"buckets.yaml": passingScenario,
		"wrong.yml":    failingScenario,
	})

	stdout, _, err := runCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong-count")
	assert.Contains(t, stdout, "step 1")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"wrong.yaml": failingScenario})

	_, resp, err := runCommandJSON(t, "", "test", filepath.Join(dir, "wrong.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "TEST_FAILED", resp.Error.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), data["failed"])
	assert.Equal(t, float64(1), data["total"])
}

func TestTestCommand_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"buckets.yaml": passingScenario,
		"wrong.yaml":   failingScenario,
		"notes.txt":    "not a scenario",
	})

	stdout, _, err := runCommand(t, "", "test", dir, "--filter", "buck*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 total")
	assert.NotContains(t, stdout, "wrong-count")
}

func TestTestCommand_NoScenarios(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"buckets.yaml": passingScenario})

	stdout, _, err := runCommand(t, "", "test", dir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTestCommand_MissingPath(t *testing.T) {
	_, resp, err := runCommandJSON(t, "", "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, resp.Error.Message, "scenario path not found")
}

func TestTestCommand_InvalidScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"bad.yaml": "name: bad\nunknown_field: 1\n"})

	stdout, _, err := runCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTestCommand_Golden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"buckets.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "buckets.golden")

	_, _, err := runCommand(t, "", "test", dir, "--update")
	require.NoError(t, err)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario":"buckets"`)

	_, _, err = runCommand(t, "", "test", dir)
	require.NoError(t, err, "transcript should match the golden file it just wrote")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"pass":true}`), 0o644))
	stdout, _, err := runCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "freshness.golden"),
		goldenFilePath(filepath.Join("scenarios", "freshness.yaml")))
}
