package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")

func runTestCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyScenarios copies the harness scenarios and their sheet into a temp
// dir laid out the same way, so golden files can be written there.
func copyScenarios(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"scenarios", "sheets"} {
		src := filepath.Join("..", "harness", "testdata", dir)
		dst := filepath.Join(root, dir)
		require.NoError(t, os.MkdirAll(dst, 0755))

		entries, err := os.ReadDir(src)
		require.NoError(t, err)
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(src, e.Name()))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), data, 0644))
		}
	}
	return filepath.Join(root, "scenarios")
}

func TestTestCommandPasses(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "text"}, scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ equip_sword")
	assert.Contains(t, out, "✓ rejected_batch")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "json"}, scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, sr := range resp.Data.Scenarios {
		assert.True(t, sr.Pass, sr.Name)
	}
}

func TestTestCommandFilter(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "text"}, scenariosDir, "--filter", "equip*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ equip_sword")
	assert.NotContains(t, out, "rejected_batch")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandSingleFile(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "text"}, filepath.Join(scenariosDir, "rejected_batch.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed")
}

func TestTestCommandConfiguredScenarios(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	opts.Config.Scenarios = []string{scenariosDir}

	out, err := runTestCmd(t, opts)
	require.NoError(t, err)
	assert.Contains(t, out, "2 passed")

	_, err = runTestCmd(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := copyScenarios(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`name: wrong
description: "Expects a value the sheet does not produce"
sheet: ../sheets/knight.cue
steps:
  - simulate:
      - {op: set_base, stat: strength, value: 12}
    confirm: true
    expect: {strength: 13}
`), 0644))

	out, err := runTestCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "strength = 13")
	assert.Contains(t, out, "2 passed, 1 failed, 3 total")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := copyScenarios(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := runTestCmd(t, &RootOptions{Format: "text"}, filepath.Join(dir, "broken.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandMissingPath(t *testing.T) {
	_, err := runTestCmd(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E002")
}

func TestTestCommandGolden(t *testing.T) {
	dir := copyScenarios(t)
	opts := &RootOptions{Format: "text"}

	_, err := runTestCmd(t, opts, dir, "--golden")
	require.Error(t, err, "golden files do not exist yet")

	_, err = runTestCmd(t, opts, dir, "--update")
	require.NoError(t, err)
	golden := filepath.Join(dir, "golden", "equip_sword.golden")
	require.FileExists(t, golden)

	// The CLI writes the same bytes the harness golden test pins.
	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "equip_sword.golden"))
	require.NoError(t, err)
	got, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	out, err := runTestCmd(t, opts, dir, "--golden")
	require.NoError(t, err)
	assert.Contains(t, out, "2 passed")

	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0644))
	out, err = runTestCmd(t, opts, dir, "--golden")
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "equip_sword.golden"),
		goldenFilePath(filepath.Join("scenarios", "equip_sword.yaml")))
}
