package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knightSheet is shared with the harness scenarios.
var knightSheet = filepath.Join("..", "harness", "testdata", "sheets", "knight.cue")

// writeFile writes content to name inside a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// executeRoot runs the full root command, so config loading and
// persistent flags apply.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "statsim", cmd.Use)
	assert.Contains(t, cmd.Long, "what-if sessions")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "compile", "simulate", "test", "journal", "replay"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "statsim.yaml", configFlag.DefValue)
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"compile", []string{"output"}},
		{"simulate", []string{"confirm", "db"}},
		{"test", []string{"update", "golden", "filter"}},
		{"journal", []string{"db", "session", "sheet", "status", "after"}},
		{"replay", []string{"db"}},
	}

	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestRootInvalidFormat(t *testing.T) {
	_, err := executeRoot(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--format", "xml", "validate", knightSheet)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootConfigFormat(t *testing.T) {
	cfg := writeFile(t, "statsim.yaml", "format: json\nlog_level: error\n")

	out, err := executeRoot(t, "--config", cfg, "validate", knightSheet)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)

	// An explicit flag wins over the config.
	out, err = executeRoot(t, "--config", cfg, "--format", "text", "validate", knightSheet)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Sheet knight valid")
}

func TestRootBadConfig(t *testing.T) {
	cfg := writeFile(t, "statsim.yaml", "colour: blue\n")

	_, err := executeRoot(t, "--config", cfg, "validate", knightSheet)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
