package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statsim/internal/ir"
)

const swordActions = `- {op: add_modifier, stat: strength, kind: flat, value: 5, source: sword}
`

func runSimulateCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

type simulateResponse struct {
	Status string         `json:"status"`
	Data   SimulateResult `json:"data"`
	Error  *CLIError      `json:"error"`
}

func decodeSimulate(t *testing.T, out string) simulateResponse {
	t.Helper()
	var resp simulateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func diffMap(diffs []ir.DiffRecord) map[string][2]string {
	out := make(map[string][2]string, len(diffs))
	for _, d := range diffs {
		out[d.Stat] = [2]string{diffSide(d.Before, "-"), diffSide(d.After, "-")}
	}
	return out
}

func TestSimulateText(t *testing.T) {
	actions := writeFile(t, "actions.yaml", swordActions)

	out, err := runSimulateCmd(t, &RootOptions{Format: "text"}, knightSheet, actions)
	require.NoError(t, err)
	assert.Contains(t, out, "(seq 1) cancelled")
	assert.Contains(t, out, "strength")
	assert.Contains(t, out, "max_health")
	assert.NotContains(t, out, "Journaled.")
}

func TestSimulateJSON(t *testing.T) {
	actions := writeFile(t, "actions.yaml", swordActions+
		"- {op: add_stat, stat: luck, value: 3}\n"+
		"- {op: remove_stat, stat: armor}\n")

	out, err := runSimulateCmd(t, &RootOptions{Format: "json"}, knightSheet, actions)
	require.NoError(t, err)

	resp := decodeSimulate(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "knight", resp.Data.Sheet)
	assert.Equal(t, ir.StatusCancelled, resp.Data.Status)
	assert.False(t, resp.Data.Journaled)
	assert.NotEmpty(t, resp.Data.Session)
	assert.Equal(t, map[string][2]string{
		"strength":   {"10", "15"},
		"max_health": {"160", "165"},
		"armor":      {"5", "-"},
		"luck":       {"-", "3"},
	}, diffMap(resp.Data.Diffs))
}

func TestSimulateConfirmJournals(t *testing.T) {
	db := filepath.Join(t.TempDir(), "statsim.db")
	actions := writeFile(t, "actions.yaml", swordActions)
	opts := &RootOptions{Format: "json"}

	out, err := runSimulateCmd(t, opts, knightSheet, actions, "--db", db, "--confirm")
	require.NoError(t, err)
	first := decodeSimulate(t, out)
	assert.Equal(t, ir.StatusConfirmed, first.Data.Status)
	assert.True(t, first.Data.Journaled)
	assert.Equal(t, int64(1), first.Data.Seq)

	// The second run starts from the journaled live state.
	out, err = runSimulateCmd(t, opts, knightSheet, actions, "--db", db)
	require.NoError(t, err)
	second := decodeSimulate(t, out)
	assert.Equal(t, ir.StatusCancelled, second.Data.Status)
	assert.Equal(t, int64(2), second.Data.Seq)
	assert.Equal(t, map[string][2]string{
		"strength":   {"15", "20"},
		"max_health": {"165", "170"},
	}, diffMap(second.Data.Diffs))
	assert.Equal(t, first.Data.Digest, second.Data.Digest, "a cancelled session leaves the live state alone")
}

func TestSimulateDatabaseFromConfig(t *testing.T) {
	db := filepath.Join(t.TempDir(), "statsim.db")
	actions := writeFile(t, "actions.yaml", swordActions)
	opts := &RootOptions{Format: "text"}
	opts.Config.Database = db

	out, err := runSimulateCmd(t, opts, knightSheet, actions)
	require.NoError(t, err)
	assert.Contains(t, out, "Journaled.")
}

func TestSimulateNoChanges(t *testing.T) {
	actions := writeFile(t, "actions.yaml", "- {op: set_base, stat: strength, value: 10}\n")

	out, err := runSimulateCmd(t, &RootOptions{Format: "text"}, knightSheet, actions)
	require.NoError(t, err)
	assert.Contains(t, out, "no stat changes")
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name     string
		actions  string
		wantExit int
		wantCode string
	}{
		{"unknown op", "- {op: explode, stat: strength}\n", ExitCommandError, ErrCodeActions},
		{"unknown field", "- {op: set_base, stat: strength, value: 1, colour: red}\n", ExitCommandError, ErrCodeActions},
		{"empty file", "", ExitCommandError, ErrCodeActions},
		{"unknown stat", "- {op: set_base, stat: luck, value: 1}\n", ExitFailure, ErrCodeActions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := writeFile(t, "actions.yaml", tt.actions)

			out, err := runSimulateCmd(t, &RootOptions{Format: "json"}, knightSheet, actions)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decodeSimulate(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestSimulateMissingSheet(t *testing.T) {
	actions := writeFile(t, "actions.yaml", swordActions)

	_, err := runSimulateCmd(t, &RootOptions{Format: "text"}, "/nonexistent/sheet.cue", actions)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
}

func TestLoadActions(t *testing.T) {
	path := writeFile(t, "actions.yaml", `- op: add_modifier
  stat: strength
  kind: percent
  value: 50
  source: aura
  label: blessing
- op: remove_source
  source: sword
`)

	actions, err := LoadActions(path)
	require.NoError(t, err)
	assert.Equal(t, []ir.ActionSpec{
		{Op: ir.OpAddModifier, Stat: "strength", Kind: ir.ModPercent, Value: 50, Source: "aura", Label: "blessing"},
		{Op: ir.OpRemoveSource, Source: "sword"},
	}, actions)

	_, err = LoadActions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read actions file")
}
