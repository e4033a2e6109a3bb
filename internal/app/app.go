// Package app wires murmur's packages into the CLI entrypoint: local
// commands run in-process, control commands forward to the daemon socket.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"murmur/internal/capture"
	"murmur/internal/cli"
	"murmur/internal/config"
	"murmur/internal/doctor"
	"murmur/internal/ipc"
	"murmur/internal/logging"
	"murmur/internal/provider"
	"murmur/internal/store"
	"murmur/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("murmur"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("murmur"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	settingsPath := parsed.ConfigPath
	if settingsPath == "" {
		settingsPath, err = store.SettingsPath()
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}
	settings, err := store.OpenSettings(settingsPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("open settings failed", "error", err.Error())
		return 1
	}

	logger.Info("command start",
		"command", parsed.Command,
		"settings", settingsPath,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, settings, logger)
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, settings.Get())
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart, cli.CommandStop, cli.CommandCancel, cli.CommandToggle, cli.CommandCorrect:
		return r.forwardOrFail(ctx, string(parsed.Command))
	case cli.CommandValidateKey:
		return r.commandValidateKey(ctx, parsed.Provider, parsed.Key)
	case cli.CommandSetKey:
		return r.commandSetKey(ctx, settings, parsed.Provider, parsed.Key)
	case cli.CommandDownloadModel:
		return r.commandDownloadModel(ctx, parsed.Model)
	case cli.CommandHistory:
		return r.commandHistory(parsed.HistoryCount)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDoctor(ctx context.Context, settings config.Settings) int {
	client := provider.NewHTTPClient()
	report := doctor.Run(ctx, settings, doctor.Probes{
		Whisper: provider.NewWhisperLocal(whisperDir(), client),
		Ollama:  provider.NewOllama(client),
	})
	fmt.Fprintln(r.Stdout, report.String())
	if report.OK() {
		return 0
	}
	return 1
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := capture.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no capture devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	resp, handled, err := tryForward(ctx, ipc.SocketPath(), ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "not running")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	resp, handled, err := tryForward(ctx, ipc.SocketPath(), command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no murmur daemon running (start one with `murmur run`)")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandValidateKey(ctx context.Context, providerID, key string) int {
	backends := newBackends(provider.NewHTTPClient(), config.Default())
	validator, ok := backends.validator(providerID)
	if !ok {
		if !config.RequiresKey(providerID) {
			fmt.Fprintf(r.Stderr, "error: provider %q does not use an API key\n", providerID)
		} else {
			fmt.Fprintf(r.Stderr, "error: unknown provider %q\n", providerID)
		}
		return 2
	}

	result := validator.ValidateKey(ctx, key)
	if result.Valid {
		fmt.Fprintln(r.Stdout, "valid")
		return 0
	}
	fmt.Fprintf(r.Stdout, "invalid: %s\n", result.Error)
	return 1
}

func (r Runner) commandSetKey(ctx context.Context, settings *store.Settings, providerID, key string) int {
	if !config.RequiresKey(providerID) {
		fmt.Fprintf(r.Stderr, "error: provider %q does not use an API key\n", providerID)
		return 2
	}
	if !knownProvider(providerID) {
		fmt.Fprintf(r.Stderr, "error: unknown provider %q\n", providerID)
		return 2
	}

	if _, err := settings.Set(func(s *config.Settings) {
		if s.APIKeys == nil {
			s.APIKeys = map[string]string{}
		}
		s.APIKeys[providerID] = key
	}); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "key stored for %s\n", providerID)

	// A running daemon picks the key up on reload; absence of one is fine.
	if _, handled, err := tryForward(ctx, ipc.SocketPath(), ipc.CommandReload); handled && err != nil {
		fmt.Fprintf(r.Stderr, "warning: daemon reload failed: %v\n", err)
	}
	return 0
}

func (r Runner) commandDownloadModel(ctx context.Context, model string) int {
	if _, ok := provider.WhisperModels[model]; !ok {
		fmt.Fprintf(r.Stderr, "error: unknown whisper model %q\n", model)
		fmt.Fprintf(r.Stderr, "available models: %s\n", strings.Join(whisperModelNames(), ", "))
		return 2
	}

	whisper := provider.NewWhisperLocal(whisperDir(), provider.NewHTTPClient())
	if whisper.ModelAvailable(model) {
		fmt.Fprintf(r.Stdout, "model %q already downloaded\n", model)
		return 0
	}

	fmt.Fprintf(r.Stdout, "downloading %s...\n", model)
	err := whisper.DownloadModel(ctx, model, func(fraction float64) {
		fmt.Fprintf(r.Stdout, "\r%3.0f%%", fraction*100)
	})
	fmt.Fprintln(r.Stdout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "model %q ready\n", model)
	return 0
}

func whisperModelNames() []string {
	names := make([]string, 0, len(provider.WhisperModels))
	for name := range provider.WhisperModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Runner) commandHistory(count int) int {
	path, err := store.HistoryPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	history, err := store.OpenHistory(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = history.Close() }()

	items, err := history.Recent(count)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(items) == 0 {
		fmt.Fprintln(r.Stdout, "no history")
		return 0
	}

	for _, item := range items {
		fmt.Fprintf(r.Stdout, "%s [%s/%s] %s\n",
			item.Timestamp.Format(time.RFC3339),
			item.TranscriptionProvider,
			item.ProcessingMode,
			item.ProcessedText,
		)
	}
	return 0
}

func knownProvider(providerID string) bool {
	for _, id := range config.TranscriptionProviders {
		if id == providerID {
			return true
		}
	}
	for _, id := range config.GenerationProviders {
		if id == providerID {
			return true
		}
	}
	return false
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
