// Package correction rewrites the user's current selection in place: copy
// the selection through the clipboard, run it through the text-generation
// router, paste the result, and put the original clipboard back.
package correction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"murmur/internal/config"
	"murmur/internal/fsm"
	"murmur/internal/overlay"
	"murmur/internal/paste"
)

const (
	// clipboardRestoreDelay separates the paste keystroke from the clipboard
	// restore so the application receiving the paste reads the corrected
	// text, not the restored original.
	clipboardRestoreDelay = 500 * time.Millisecond
	// completeRevertDelay and errorRevertDelay hold the terminal overlay
	// state before reverting to idle.
	completeRevertDelay = 1500 * time.Millisecond
	errorRevertDelay    = 3 * time.Second
)

// defaultPrompt is the fixed correction instruction used when settings carry
// no custom prompt.
const defaultPrompt = `You are a precise text editor. Your task is to:
1. Fix spelling, grammar, and punctuation mistakes
2. Keep the original meaning, tone, and formatting intact
3. Do NOT add or remove substantive content

Return ONLY the corrected text, nothing else.`

// ErrBusy reports a correction refused because another one is running.
var ErrBusy = errors.New("correction already in progress")

// ErrNoSelection reports an aborted correction because nothing was selected.
var ErrNoSelection = errors.New("no text selected")

// ErrNotConfigured reports a correction refused because the generation
// provider has no usable API key.
var ErrNotConfigured = errors.New("generation provider is not configured")

// SettingsSource provides immutable settings snapshots.
type SettingsSource interface {
	Get() config.Settings
}

// Generator runs the sanitized-completion protocol for one prompt.
type Generator interface {
	Complete(ctx context.Context, providerID, prompt, model string) (string, error)
}

// Controller owns the selection-correction flow. It refuses to run while a
// previous correction is still in flight or while the other controller's
// Busy hook reports activity.
type Controller struct {
	logger    *slog.Logger
	settings  SettingsSource
	generator Generator
	injector  paste.Injector
	broadcast overlay.Broadcaster
	busy      func() bool

	restoreDelay  time.Duration
	completeDelay time.Duration
	errorDelay    time.Duration

	mu         sync.Mutex
	correcting bool
}

// New constructs an idle correction controller. busy reports whether the
// sibling dictation flow is active; it may be nil.
func New(
	logger *slog.Logger,
	settings SettingsSource,
	generator Generator,
	injector paste.Injector,
	broadcast overlay.Broadcaster,
	busy func() bool,
) *Controller {
	return &Controller{
		logger:        logger,
		settings:      settings,
		generator:     generator,
		injector:      injector,
		broadcast:     broadcast,
		busy:          busy,
		restoreDelay:  clipboardRestoreDelay,
		completeDelay: completeRevertDelay,
		errorDelay:    errorRevertDelay,
	}
}

// Correcting reports whether a correction is currently running.
func (c *Controller) Correcting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.correcting
}

// Correct rewrites the current selection. The previous clipboard contents
// are restored on every exit path past the copy, success or failure.
func (c *Controller) Correct(ctx context.Context) error {
	c.mu.Lock()
	if c.correcting || (c.busy != nil && c.busy()) {
		c.mu.Unlock()
		return ErrBusy
	}
	c.correcting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.correcting = false
		c.mu.Unlock()
	}()

	settings := c.settings.Get()
	providerID := settings.Generation.Provider
	if !settings.HasUsableKey(providerID) {
		c.emit(overlay.Update{State: fsm.StateIdle, NeedsConfiguration: true})
		return fmt.Errorf("%w: %s", ErrNotConfigured, providerID)
	}

	c.emit(overlay.Update{State: fsm.StateProcessing})

	if err := c.run(ctx, settings); err != nil {
		c.emit(overlay.Update{State: fsm.StateError, Error: err.Error()})
		time.AfterFunc(c.errorDelay, func() {
			c.emit(overlay.Update{State: fsm.StateIdle})
		})
		return err
	}
	time.AfterFunc(c.completeDelay, func() {
		c.emit(overlay.Update{State: fsm.StateIdle})
	})
	return nil
}

// run performs copy, complete, paste, and restore. The clipboard restore is
// deferred so it happens even when a later step fails.
func (c *Controller) run(ctx context.Context, settings config.Settings) error {
	selection, err := c.injector.CopySelection()
	if err != nil {
		c.restore(selection.PreviousClipboard, 0)
		return fmt.Errorf("copy selection: %w", err)
	}

	text := strings.TrimSpace(selection.SelectedText)
	if text == "" {
		c.restore(selection.PreviousClipboard, 0)
		return ErrNoSelection
	}

	corrected, err := c.generator.Complete(ctx,
		settings.Generation.Provider,
		buildPrompt(settings.Correction.CustomPrompt, selection.SelectedText),
		settings.Generation.Model)
	if err != nil {
		c.restore(selection.PreviousClipboard, 0)
		return err
	}

	if err := c.injector.Paste(corrected); err != nil {
		c.restore(selection.PreviousClipboard, 0)
		return err
	}

	c.emit(overlay.Update{State: fsm.StateComplete, WordCount: len(strings.Fields(corrected))})
	c.restore(selection.PreviousClipboard, c.restoreDelay)
	return nil
}

// restore writes the previous clipboard back, waiting first when the paste
// keystroke needs time to land.
func (c *Controller) restore(previous string, delay time.Duration) {
	if delay > 0 {
		time.Sleep(delay)
	}
	if err := c.injector.RestoreClipboard(previous); err != nil && c.logger != nil {
		c.logger.Warn("clipboard restore failed", "error", err.Error())
	}
}

func (c *Controller) emit(u overlay.Update) {
	if c.broadcast != nil {
		c.broadcast.Broadcast(u)
	}
}

func buildPrompt(custom, text string) string {
	instruction := defaultPrompt
	if strings.TrimSpace(custom) != "" {
		instruction = strings.TrimSpace(custom)
	}
	return instruction + "\n\nText to correct:\n" + text
}
