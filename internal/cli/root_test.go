package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labelScenario = "../harness/testdata/scenarios/label.yaml"

// execute runs the full command tree and returns stdout, stderr and the
// exit code.
func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "vtree", cmd.Use)
	assert.Contains(t, cmd.Long, "mutation batches")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "test", "validate", "trace", "replay"}

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

	for _, name := range []string{"config", "db", "encoding"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	tests := []struct {
		command string
		flag    string
		def     string
	}{
		{"run", "record", "false"},
		{"test", "filter", ""},
		{"test", "golden", ""},
		{"test", "update", "false"},
		{"trace", "edits", "false"},
		{"replay", "html", "false"},
		{"replay", "until", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			flag := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.def, flag.DefValue)
		})
	}
}

func TestExecute_InvalidFormat(t *testing.T) {
	_, stderr, code := execute(t, "--format", "yaml", "run", labelScenario)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid format "yaml"`)
}

func TestExecute_InvalidEncoding(t *testing.T) {
	_, stderr, code := execute(t, "--encoding", "xml", "run", labelScenario)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid --encoding")
}

func TestExecute_MissingConfigDir(t *testing.T) {
	_, stderr, code := execute(t, "--config", t.TempDir(), "run", labelScenario)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "failed to load configuration")
}

func TestExecute_UnknownCommand(t *testing.T) {
	_, stderr, code := execute(t, "compile")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "unknown command")
}
