package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/murmur.json", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/murmur.json", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "version flag",
			args:     []string{"--version"},
			wantCmd:  CommandVersion,
			wantHelp: false,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:     "run command",
			args:     []string{"run"},
			wantCmd:  CommandRun,
			wantHelp: false,
		},
		{
			name:     "correct command",
			args:     []string{"correct"},
			wantCmd:  CommandCorrect,
			wantHelp: false,
		},
		{
			name:     "valid stop with config",
			args:     []string{"--config", "/tmp/cfg", "stop"},
			wantCmd:  CommandStop,
			wantHelp: false,
			wantPath: "/tmp/cfg",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestParseValidateKey(t *testing.T) {
	parsed, err := Parse([]string{"validate-key", "groq", "gsk_live"})
	require.NoError(t, err)
	require.Equal(t, CommandValidateKey, parsed.Command)
	require.Equal(t, "groq", parsed.Provider)
	require.Equal(t, "gsk_live", parsed.Key)

	_, err = Parse([]string{"validate-key", "groq"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires 2 arguments")
}

func TestParseSetKey(t *testing.T) {
	parsed, err := Parse([]string{"set-key", "anthropic", "sk-ant-test"})
	require.NoError(t, err)
	require.Equal(t, CommandSetKey, parsed.Command)
	require.Equal(t, "anthropic", parsed.Provider)
	require.Equal(t, "sk-ant-test", parsed.Key)
}

func TestParseDownloadModel(t *testing.T) {
	parsed, err := Parse([]string{"download-model", "base"})
	require.NoError(t, err)
	require.Equal(t, CommandDownloadModel, parsed.Command)
	require.Equal(t, "base", parsed.Model)

	_, err = Parse([]string{"download-model"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires 1 argument")

	_, err = Parse([]string{"download-model", "base", "extra"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires 1 argument")
}

func TestParseHistory(t *testing.T) {
	parsed, err := Parse([]string{"history"})
	require.NoError(t, err)
	require.Equal(t, CommandHistory, parsed.Command)
	require.Equal(t, 10, parsed.HistoryCount)

	parsed, err = Parse([]string{"history", "-n", "25"})
	require.NoError(t, err)
	require.Equal(t, 25, parsed.HistoryCount)

	_, err = Parse([]string{"history", "-n"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires a count")

	_, err = Parse([]string{"history", "-n", "zero"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid history count")

	_, err = Parse([]string{"history", "-n", "-3"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid history count")

	_, err = Parse([]string{"history", "extra"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected argument")
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("murmur")
	require.Contains(t, text, "run")
	require.Contains(t, text, "toggle")
	require.Contains(t, text, "correct")
	require.Contains(t, text, "validate-key")
	require.Contains(t, text, "download-model")
	require.Contains(t, text, "history")
	require.Contains(t, text, "--config PATH")
}
