package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statsim/internal/ir"
	"github.com/roach88/statsim/internal/sheet"
)

func runCompileCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileSheetText(t *testing.T) {
	out, err := runCompileCmd(t, "text", knightSheet)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled sheet knight: 4 stat(s)")
	assert.Contains(t, out, "hash: ")
	assert.Contains(t, out, "strength: base 10")
	assert.Contains(t, out, "max_health: weighted of [strength vitality]")
}

func TestCompileSheetJSON(t *testing.T) {
	out, err := runCompileCmd(t, "json", knightSheet)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data.Sheet)
	assert.Equal(t, "knight", resp.Data.Sheet.Name)
	assert.Len(t, resp.Data.Sheet.Stats, 4)
	assert.Len(t, resp.Data.Order, 4)

	spec, err := sheet.LoadSpec(knightSheet)
	require.NoError(t, err)
	want, err := ir.HashSheet(spec)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Data.Hash)
}

func TestCompileWritesCanonicalJSON(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "knight.json")

	out, err := runCompileCmd(t, "text", knightSheet, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical JSON to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	spec, err := sheet.LoadSpec(knightSheet)
	require.NoError(t, err)
	want, err := ir.MarshalCanonical(spec.ToIR())
	require.NoError(t, err)
	assert.Equal(t, string(want), string(data))
}

func TestCompileDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")

	_, err := runCompileCmd(t, "text", knightSheet, "-o", first)
	require.NoError(t, err)
	_, err = runCompileCmd(t, "text", knightSheet, "-o", second)
	require.NoError(t, err)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompileNotFound(t *testing.T) {
	_, err := runCompileCmd(t, "text", "/nonexistent/sheet.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
}

func TestCompileInvalidSheet(t *testing.T) {
	path := writeFile(t, "sheet.cue", `name: "broken"
stats: str: {base: 10, min: 5, max: 1}`)

	out, err := runCompileCmd(t, "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeClamp, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "min 5 exceeds max 1")
}

func TestCompileUnwritableOutput(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "missing", "dir", "out.json")

	_, err := runCompileCmd(t, "text", knightSheet, "-o", outFile)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E007")
}
