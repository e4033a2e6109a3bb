// Package cli parses murmur's command line.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRun           Command = "run"
	CommandStatus        Command = "status"
	CommandStart         Command = "start"
	CommandStop          Command = "stop"
	CommandCancel        Command = "cancel"
	CommandToggle        Command = "toggle"
	CommandCorrect       Command = "correct"
	CommandDevices       Command = "devices"
	CommandDoctor        Command = "doctor"
	CommandValidateKey   Command = "validate-key"
	CommandSetKey        Command = "set-key"
	CommandDownloadModel Command = "download-model"
	CommandHistory       Command = "history"
	CommandVersion       Command = "version"
	CommandHelp          Command = "help"
)

// positionalArity maps each command to its required positional argument
// count.
var positionalArity = map[Command]int{
	CommandRun:           0,
	CommandStatus:        0,
	CommandStart:         0,
	CommandStop:          0,
	CommandCancel:        0,
	CommandToggle:        0,
	CommandCorrect:       0,
	CommandDevices:       0,
	CommandDoctor:        0,
	CommandValidateKey:   2,
	CommandSetKey:        2,
	CommandDownloadModel: 1,
	CommandHistory:       0,
	CommandVersion:       0,
	CommandHelp:          0,
}

// defaultHistoryCount bounds history output when -n is not given.
const defaultHistoryCount = 10

type Parsed struct {
	Command      Command
	ConfigPath   string
	ShowHelp     bool
	Provider     string
	Key          string
	Model        string
	HistoryCount int
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true, HistoryCount: defaultHistoryCount}

	i := 0
	for ; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			arity, ok := positionalArity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			return parseCommandArgs(parsed, cmd, arity, args[i+1:])
		}
	}

	return parsed, nil
}

// parseCommandArgs consumes everything after the command word.
func parseCommandArgs(parsed Parsed, cmd Command, arity int, rest []string) (Parsed, error) {
	if cmd == CommandHistory {
		return parseHistoryArgs(parsed, rest)
	}

	if len(rest) != arity {
		switch arity {
		case 0:
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", cmd)
		case 1:
			return Parsed{}, fmt.Errorf("command %q requires 1 argument: <model>", cmd)
		default:
			return Parsed{}, fmt.Errorf("command %q requires %d arguments: <provider> <key>", cmd, arity)
		}
	}

	switch arity {
	case 1:
		parsed.Model = rest[0]
	case 2:
		parsed.Provider = rest[0]
		parsed.Key = rest[1]
	}
	return parsed, nil
}

func parseHistoryArgs(parsed Parsed, rest []string) (Parsed, error) {
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "-n":
			i++
			if i >= len(rest) {
				return Parsed{}, errors.New("-n requires a count")
			}
			count, err := strconv.Atoi(rest[i])
			if err != nil || count <= 0 {
				return Parsed{}, fmt.Errorf("invalid history count %q", rest[i])
			}
			parsed.HistoryCount = count
		default:
			return Parsed{}, fmt.Errorf("unexpected argument after command %q: %s", CommandHistory, rest[i])
		}
	}
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  run             Start the dictation daemon (hotkeys, capture, IPC)
  status          Print daemon state
  start           Begin dictation
  stop            End dictation and paste the transcript
  cancel          Abandon the in-flight dictation
  toggle          Start dictation or stop+paste when already dictating
  correct         Rewrite the current selection in place
  devices         List available capture devices
  doctor          Run configuration and environment checks
  validate-key    Probe a provider API key: validate-key <provider> <key>
  set-key         Store a provider API key: set-key <provider> <key>
  download-model  Fetch a whisper model: download-model <model>
  history         Print recent dictations (history [-n N])
  version         Print version information
  help            Show this help

Flags:
  --config PATH   Settings file path (default: $XDG_CONFIG_HOME/murmur/settings.json)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
