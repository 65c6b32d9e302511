package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")
	harnessGolden    = filepath.Join("..", "harness", "testdata", "golden")
)

const passingScenario = `name: hello
description: "a line is echoed"
steps:
  - input: "hello"
  - settle: true
assertions:
  - type: transcript_contains
    line: "<bot> hello"
`

const failingScenario = `name: wrong
description: "expects a reply that never comes"
config:
  bot:
    mode: "off"
steps:
  - input: "hello"
  - settle: true
assertions:
  - type: transcript_contains
    line: "<bot> hello"
`

func writeScenario(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestScenarioCommand_HarnessScenariosPass(t *testing.T) {
	stdout, _, err := execute(t, "", "scenario", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓ echo\n")
	assert.Contains(t, stdout, "✓ mute\n")
	assert.Contains(t, stdout, "✓ quit\n")
	assert.Contains(t, stdout, "3 passed, 0 failed, 3 total")
}

func TestScenarioCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, "", "scenario",
		filepath.Join(harnessScenarios, "echo.yaml"), "--golden", harnessGolden, "--format", "json")
	require.NoError(t, err)

	var report ScenarioReport
	resp := decode(t, stdout, &report)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, report.Scenarios, 1)
	assert.Equal(t, "echo", report.Scenarios[0].Name)
	assert.Equal(t, "match", report.Scenarios[0].Golden)
	assert.Equal(t, 1, report.Passed)
}

func TestScenarioCommand_Filter(t *testing.T) {
	stdout, _, err := execute(t, "", "scenario", harnessScenarios, "--golden", harnessGolden, "--filter", "mu*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ mute\n")
	assert.NotContains(t, stdout, "echo")
	assert.Contains(t, stdout, "1 passed, 0 failed, 1 total")
}

func TestScenarioCommand_UpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hello.yaml", passingScenario)

	stdout, _, err := execute(t, "", "scenario", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ hello (golden updated)\n")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "hello.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"<bot> hello"`)

	stdout, _, err = execute(t, "", "scenario", dir, "--format", "json")
	require.NoError(t, err)
	var report ScenarioReport
	decode(t, stdout, &report)
	assert.Equal(t, "match", report.Scenarios[0].Golden)
}

func TestScenarioCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hello.yaml", passingScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "hello.golden"), []byte("{}\n"), 0o644))

	stdout, _, err := execute(t, "", "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ hello\n")
	assert.Contains(t, stdout, "does not match golden file")
}

func TestScenarioCommand_AssertionFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", failingScenario)
	writeScenario(t, dir, "hello.yaml", passingScenario)

	stdout, _, err := execute(t, "", "scenario", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var report ScenarioReport
	resp := decode(t, stdout, &report)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Scenarios, 2)
	assert.Equal(t, "hello", report.Scenarios[0].Name)
	assert.Equal(t, "missing", report.Scenarios[0].Golden)
	assert.False(t, report.Scenarios[1].Pass)
	assert.NotEmpty(t, report.Scenarios[1].Errors)
}

func TestScenarioCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yml", "name: broken\n")

	stdout, _, err := execute(t, "", "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ broken.yml\n")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestScenarioCommand_Empty(t *testing.T) {
	stdout, _, err := execute(t, "", "scenario", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestScenarioCommand_MissingPath(t *testing.T) {
	_, _, err := execute(t, "", "scenario", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioCommand_RequiresAPath(t *testing.T) {
	_, _, err := execute(t, "", "scenario")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommand_MissingDB(t *testing.T) {
	_, _, err := execute(t, "", "trace", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommand_NotAJournal(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "notes.txt", "plain text")

	stdout, _, err := execute(t, "", "trace", "--db", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	resp := decode(t, stdout, nil)
	assert.Equal(t, CodeJournal, resp.Error.Code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(data), "file is left untouched")
}

func TestTraceCommand_UnknownKind(t *testing.T) {
	_, _, err := execute(t, "", "trace", "--db", "x.db", "--run", "r", "--kind", "exploded")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown event kind "exploded"`)
}
