package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"murmur/internal/capture"
	"murmur/internal/config"
	"murmur/internal/correction"
	"murmur/internal/fsm"
	"murmur/internal/hotkey"
	"murmur/internal/ipc"
	"murmur/internal/overlay"
	"murmur/internal/paste"
	"murmur/internal/provider"
	"murmur/internal/recording"
	"murmur/internal/router"
	"murmur/internal/store"
)

// daemon is the long-running side of `murmur run`: it owns the controllers,
// the hotkey dispatcher, the capture surface, and the IPC server.
type daemon struct {
	logger     *slog.Logger
	settings   *store.Settings
	backends   *backends
	surface    capture.Surface
	dispatcher *hotkey.Dispatcher
	recorder   *recording.Controller
	corrector  *correction.Controller
	history    *store.History
	fanout     *overlay.Fanout
}

func (r Runner) commandRun(ctx context.Context, settings *store.Settings, logger *slog.Logger) int {
	socketPath := ipc.SocketPath()
	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: murmur daemon already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	d, err := newDaemon(settings, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon setup failed", "error", err.Error())
		return 1
	}
	defer d.close()

	fmt.Fprintf(r.Stdout, "murmur daemon listening on %s\n", socketPath)
	if err := d.run(ctx, listener); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newDaemon(settings *store.Settings, logger *slog.Logger) (*daemon, error) {
	snapshot := settings.Get()

	client := provider.NewHTTPClient()
	b := newBackends(client, snapshot)

	transcription := router.NewTranscription()
	generation := router.NewTextGeneration()
	b.register(transcription, generation)

	surface, err := newSurface(snapshot.Capture)
	if err != nil {
		return nil, err
	}

	keyboard, err := paste.NewKeyboard()
	if err != nil {
		return nil, fmt.Errorf("setup input simulation: %w", err)
	}

	var history *store.History
	var recorderHistory recording.Recorder
	if snapshot.History.Enable {
		path, pathErr := store.HistoryPath()
		if pathErr == nil {
			history, pathErr = store.OpenHistory(path)
		}
		if pathErr != nil {
			logger.Warn("history unavailable", "error", pathErr.Error())
		} else {
			recorderHistory = history
		}
	}

	fanout := overlay.NewFanout()
	broadcast := overlay.Multi{fanout, overlay.NewDesktopNotifier(logger)}

	recorder := recording.New(logger, settings, surface, transcription, generation, keyboard, recorderHistory, broadcast)
	corrector := correction.New(logger, settings, generation, keyboard, broadcast, func() bool {
		return recorder.State() != fsm.StateIdle
	})

	dispatcher := hotkey.NewDispatcher()
	if err := dispatcher.UpdateBindings(snapshot.Hotkeys); err != nil {
		logger.Warn("hotkey registration failed", "error", err.Error())
	}

	return &daemon{
		logger:     logger,
		settings:   settings,
		backends:   b,
		surface:    surface,
		dispatcher: dispatcher,
		recorder:   recorder,
		corrector:  corrector,
		history:    history,
		fanout:     fanout,
	}, nil
}

func newSurface(cfg config.CaptureConfig) (capture.Surface, error) {
	switch cfg.Backend {
	case "pulse":
		return capture.NewPulse(cfg.Input), nil
	case "portaudio":
		return capture.NewPortAudio(), nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cfg.Backend)
	}
}

func (d *daemon) close() {
	if d.dispatcher != nil {
		d.dispatcher.Close()
	}
	if d.history != nil {
		_ = d.history.Close()
	}
}

// run drives the daemon event loop until context cancellation.
func (d *daemon) run(ctx context.Context, listener net.Listener) error {
	serveCtx, serveCancel := context.WithCancel(ctx)
	defer serveCancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- ipc.Serve(serveCtx, listener, d)
	}()

	go d.logUpdates(d.fanout.Subscribe())

	hotkeyEvents := d.dispatcher.Events()
	captureEvents := d.surface.Events()

	for {
		select {
		case <-ctx.Done():
			serveCancel()
			if err := <-serveErr; err != nil {
				return fmt.Errorf("ipc server: %w", err)
			}
			return nil
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("ipc server: %w", err)
			}
			return nil
		case event := <-hotkeyEvents:
			d.handleHotkey(ctx, event)
		case event, ok := <-captureEvents:
			if !ok {
				captureEvents = nil
				continue
			}
			d.handleCapture(event)
		}
	}
}

// logUpdates drains the overlay fanout into the structured log.
func (d *daemon) logUpdates(updates <-chan overlay.Update) {
	for update := range updates {
		d.logger.Info("overlay update",
			"state", string(update.State),
			"word_count", update.WordCount,
			"error", update.Error,
			"needs_configuration", update.NeedsConfiguration,
		)
	}
}

func (d *daemon) handleHotkey(ctx context.Context, event hotkey.Event) {
	mode := d.settings.Get().Hotkeys.ActivationMode

	switch event {
	case hotkey.EventActivateDown:
		if mode == config.ActivationToggle {
			d.toggle(ctx)
			return
		}
		if err := d.recorder.Start(ctx); err != nil {
			d.logger.Warn("start refused", "error", err.Error())
		}
	case hotkey.EventActivateUp:
		if mode == config.ActivationToggle {
			return
		}
		if err := d.recorder.Stop(ctx); err != nil {
			d.logger.Warn("stop failed", "error", err.Error())
		}
	case hotkey.EventCorrectDown:
		go func() {
			if err := d.corrector.Correct(ctx); err != nil {
				d.logger.Warn("correction failed", "error", err.Error())
			}
		}()
	}
}

// toggle starts a dictation or commits the in-flight one.
func (d *daemon) toggle(ctx context.Context) {
	if d.recorder.State() == fsm.StateListening {
		if err := d.recorder.Stop(ctx); err != nil {
			d.logger.Warn("stop failed", "error", err.Error())
		}
		return
	}
	if err := d.recorder.Start(ctx); err != nil {
		d.logger.Warn("start refused", "error", err.Error())
	}
}

func (d *daemon) handleCapture(event capture.Event) {
	switch e := event.(type) {
	case capture.Started:
		d.logger.Info("capture started", "device", e.Device)
	case capture.AudioReady:
		d.recorder.HandleAudio(e.WAV, e.Duration)
	case capture.Error:
		d.recorder.HandleCaptureError(e.Message)
	case capture.Level:
		// Level samples feed a VU meter; nothing to do headless.
	}
}

// Handle serves the IPC control protocol.
func (d *daemon) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(d.recorder.State())}
	case ipc.CommandStart:
		if err := d.recorder.Start(ctx); err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(d.recorder.State())}
	case ipc.CommandStop:
		if err := d.recorder.Stop(ctx); err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(d.recorder.State())}
	case ipc.CommandCancel:
		if err := d.recorder.Cancel(); err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(d.recorder.State())}
	case ipc.CommandToggle:
		d.toggle(ctx)
		return ipc.Response{OK: true, State: string(d.recorder.State())}
	case ipc.CommandCorrect:
		go func() {
			if err := d.corrector.Correct(ctx); err != nil {
				d.logger.Warn("correction failed", "error", err.Error())
			}
		}()
		return ipc.Response{OK: true, Message: "correcting"}
	case ipc.CommandReload:
		return d.reload()
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

// reload re-reads settings from disk and applies keys and hotkeys in place.
func (d *daemon) reload() ipc.Response {
	snapshot, err := d.settings.Reload()
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}

	d.backends.applyKeys(snapshot)
	if d.dispatcher != nil {
		if err := d.dispatcher.UpdateBindings(snapshot.Hotkeys); err != nil {
			d.logger.Warn("hotkey rebind failed", "error", err.Error())
			return ipc.Response{OK: true, Message: "reloaded (hotkey rebind failed)"}
		}
	}
	return ipc.Response{OK: true, Message: "reloaded"}
}
