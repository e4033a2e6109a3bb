// Package recording owns the dictation lifecycle: one controller instance
// drives capture, transcription, rewrite, and paste through a guarded state
// machine.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"murmur/internal/capture"
	"murmur/internal/config"
	"murmur/internal/fsm"
	"murmur/internal/overlay"
	"murmur/internal/provider"
	"murmur/internal/router"
	"murmur/internal/store"
)

const (
	// audioTimeout bounds the wait for the capture surface to deliver audio
	// after an end-capture command.
	audioTimeout = 30 * time.Second
	// completeRevertDelay holds the complete state before the overlay reverts
	// to idle.
	completeRevertDelay = 1500 * time.Millisecond
	// errorRevertDelay holds the error state before the overlay reverts to
	// idle.
	errorRevertDelay = 3 * time.Second
)

// ErrNotConfigured reports a start refused because the transcription provider
// has no usable API key.
var ErrNotConfigured = errors.New("transcription provider is not configured")

var errAudioTimeout = errors.New("timed out waiting for audio")

// SettingsSource provides immutable settings snapshots.
type SettingsSource interface {
	Get() config.Settings
}

// Transcriber converts one audio buffer to text via a provider id.
type Transcriber interface {
	Transcribe(ctx context.Context, providerID string, audio []byte, model, language string) (provider.TranscriptionResult, error)
}

// Processor rewrites a transcript according to a processing mode.
type Processor interface {
	Process(ctx context.Context, text string, opts router.ProcessOptions) (router.CompletionResult, error)
}

// Injector places finished text at the cursor.
type Injector interface {
	Paste(text string) error
}

// Recorder persists finished dictations.
type Recorder interface {
	Add(item store.HistoryItem) (store.HistoryItem, error)
	Prune(max int) error
}

// audioResult settles the pending-audio future exactly once.
type audioResult struct {
	wav      []byte
	duration float64
	err      error
}

type audioFuture struct {
	once sync.Once
	ch   chan audioResult
}

func newAudioFuture() *audioFuture {
	return &audioFuture{ch: make(chan audioResult, 1)}
}

func (f *audioFuture) settle(r audioResult) {
	f.once.Do(func() { f.ch <- r })
}

// Controller is the single owner of dictation state. All mutable fields live
// behind its mutex; collaborators are reached only through its methods.
type Controller struct {
	logger      *slog.Logger
	settings    SettingsSource
	capture     capture.Surface
	transcriber Transcriber
	processor   Processor
	injector    Injector
	history     Recorder
	broadcast   overlay.Broadcaster

	// Delays are fields so tests can compress them.
	audioTimeout  time.Duration
	completeDelay time.Duration
	errorDelay    time.Duration

	mu         sync.Mutex
	state      fsm.State
	generation uint64
	pending    *audioFuture
	timeout    *time.Timer
	revert     *time.Timer
}

// New constructs the controller in the idle state.
func New(
	logger *slog.Logger,
	settings SettingsSource,
	surface capture.Surface,
	transcriber Transcriber,
	processor Processor,
	injector Injector,
	history Recorder,
	broadcast overlay.Broadcaster,
) *Controller {
	return &Controller{
		logger:        logger,
		settings:      settings,
		capture:       surface,
		transcriber:   transcriber,
		processor:     processor,
		injector:      injector,
		history:       history,
		broadcast:     broadcast,
		audioTimeout:  audioTimeout,
		completeDelay: completeRevertDelay,
		errorDelay:    errorRevertDelay,
		state:         fsm.StateIdle,
	}
}

// State returns the current state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a new dictation. Calls outside the idle state are no-ops, and
// a transcription provider requiring a missing key refuses the start without
// touching capture.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != fsm.StateIdle {
		c.mu.Unlock()
		return nil
	}

	settings := c.settings.Get()
	providerID := settings.Transcription.Provider
	if config.RequiresKey(providerID) && !settings.HasUsableKey(providerID) {
		c.mu.Unlock()
		c.emit(overlay.Update{State: fsm.StateIdle, NeedsConfiguration: true})
		return fmt.Errorf("%w: %s", ErrNotConfigured, providerID)
	}

	if err := c.transitionLocked(fsm.EventStart); err != nil {
		c.mu.Unlock()
		return err
	}
	c.generation++
	c.mu.Unlock()

	if err := c.capture.Begin(ctx); err != nil {
		c.failFromListening(err.Error())
		return err
	}

	c.emit(overlay.Update{State: fsm.StateListening})
	return nil
}

// Stop ends capture and hands the session to the processing pipeline. A stop
// without a preceding start is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != fsm.StateListening {
		c.mu.Unlock()
		return nil
	}
	if err := c.transitionLocked(fsm.EventStop); err != nil {
		c.mu.Unlock()
		return err
	}

	gen := c.generation
	future := newAudioFuture()
	c.pending = future
	c.timeout = time.AfterFunc(c.audioTimeout, func() {
		future.settle(audioResult{err: errAudioTimeout})
	})
	settings := c.settings.Get()
	c.mu.Unlock()

	c.emit(overlay.Update{State: fsm.StateProcessing})

	if err := c.capture.End(); err != nil {
		future.settle(audioResult{err: err})
	}

	go c.process(ctx, gen, future, settings)
	return nil
}

// Cancel abandons the in-flight dictation from listening or processing and
// issues exactly one discard-capture command. Any pending audio future
// settles as cancelled; its late resolution is discarded by generation.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	switch c.state {
	case fsm.StateListening, fsm.StateProcessing:
	default:
		c.mu.Unlock()
		return nil
	}
	if err := c.transitionLocked(fsm.EventCancel); err != nil {
		c.mu.Unlock()
		return err
	}
	c.generation++
	c.stopTimersLocked()
	if c.pending != nil {
		c.pending.settle(audioResult{err: context.Canceled})
		c.pending = nil
	}
	c.mu.Unlock()

	_ = c.capture.Discard()
	c.emit(overlay.Update{State: fsm.StateIdle})
	return nil
}

// HandleAudio settles the pending-audio future. Audio with no pending future
// (late, duplicate, or post-timeout) is ignored.
func (c *Controller) HandleAudio(wav []byte, duration float64) {
	c.mu.Lock()
	future := c.pending
	c.mu.Unlock()
	if future == nil {
		return
	}
	future.settle(audioResult{wav: wav, duration: duration})
}

// HandleCaptureError fails the session from either active state.
func (c *Controller) HandleCaptureError(message string) {
	c.mu.Lock()
	state := c.state
	future := c.pending
	c.mu.Unlock()

	switch state {
	case fsm.StateListening:
		c.failFromListening(message)
	case fsm.StateProcessing:
		if future != nil {
			future.settle(audioResult{err: errors.New(message)})
		}
	}
}

// process runs the pipeline for one settled audio future. Every step failure
// collapses to a single error transition; a stale generation means the
// session was cancelled and the result is discarded.
func (c *Controller) process(ctx context.Context, gen uint64, future *audioFuture, settings config.Settings) {
	result := <-future.ch

	c.mu.Lock()
	if c.generation != gen || c.state != fsm.StateProcessing {
		c.mu.Unlock()
		return
	}
	c.stopTimersLocked()
	c.pending = nil
	c.mu.Unlock()

	if result.err != nil {
		c.fail(gen, result.err.Error())
		return
	}

	transcription, err := c.transcriber.Transcribe(ctx,
		settings.Transcription.Provider, result.wav,
		settings.Transcription.Model, settings.Transcription.Language)
	if err != nil {
		c.fail(gen, err.Error())
		return
	}

	text := strings.TrimSpace(transcription.Text)
	if text == "" {
		c.fail(gen, "no speech detected")
		return
	}

	processed := text
	if settings.Generation.Mode != config.ModeRaw && settings.HasUsableKey(settings.Generation.Provider) {
		completion, err := c.processor.Process(ctx, text, router.ProcessOptions{
			Provider:   settings.Generation.Provider,
			Model:      settings.Generation.Model,
			Mode:       settings.Generation.Mode,
			Dictionary: settings.Dictionary,
		})
		if err != nil {
			c.fail(gen, err.Error())
			return
		}
		processed = completion.ProcessedText
	}

	if err := c.injector.Paste(processed); err != nil {
		c.fail(gen, err.Error())
		return
	}

	c.record(settings, text, processed, result.duration)
	c.complete(gen, wordCount(processed))
}

// record appends the dictation to history when enabled. Failures are logged,
// never surfaced: the paste already succeeded.
func (c *Controller) record(settings config.Settings, original, processed string, duration float64) {
	if c.history == nil || !settings.History.Enable {
		return
	}
	_, err := c.history.Add(store.HistoryItem{
		Timestamp:             time.Now(),
		OriginalText:          original,
		ProcessedText:         processed,
		DurationSeconds:       duration,
		TranscriptionProvider: settings.Transcription.Provider,
		GenerationProvider:    settings.Generation.Provider,
		ProcessingMode:        string(settings.Generation.Mode),
	})
	if err != nil {
		c.log("history append failed", err)
		return
	}
	if settings.History.MaxRows > 0 {
		if err := c.history.Prune(settings.History.MaxRows); err != nil {
			c.log("history prune failed", err)
		}
	}
}

// complete transitions to the terminal success state and arms the auto-revert.
func (c *Controller) complete(gen uint64, words int) {
	c.mu.Lock()
	if c.generation != gen || c.state != fsm.StateProcessing {
		c.mu.Unlock()
		return
	}
	if err := c.transitionLocked(fsm.EventComplete); err != nil {
		c.mu.Unlock()
		return
	}
	c.revert = time.AfterFunc(c.completeDelay, func() { c.revertToIdle(gen) })
	c.mu.Unlock()

	c.emit(overlay.Update{State: fsm.StateComplete, WordCount: words})
}

// fail transitions to the terminal error state and arms the auto-revert.
func (c *Controller) fail(gen uint64, message string) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	if err := c.transitionLocked(fsm.EventFail); err != nil {
		c.mu.Unlock()
		return
	}
	c.revert = time.AfterFunc(c.errorDelay, func() { c.revertToIdle(gen) })
	c.mu.Unlock()

	c.emit(overlay.Update{State: fsm.StateError, Error: message})
}

// failFromListening fails a session whose capture never produced audio.
func (c *Controller) failFromListening(message string) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	c.fail(gen, message)
}

// revertToIdle returns a terminal state to idle once the hold delay expires.
func (c *Controller) revertToIdle(gen uint64) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	if err := c.transitionLocked(fsm.EventRevert); err != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.emit(overlay.Update{State: fsm.StateIdle})
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) stopTimersLocked() {
	if c.timeout != nil {
		c.timeout.Stop()
		c.timeout = nil
	}
	if c.revert != nil {
		c.revert.Stop()
		c.revert = nil
	}
}

func (c *Controller) emit(u overlay.Update) {
	if c.broadcast != nil {
		c.broadcast.Broadcast(u)
	}
}

func (c *Controller) log(message string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Warn(message, "error", err.Error())
}

// wordCount splits on whitespace, matching how the overlay reports length.
func wordCount(text string) int {
	return len(strings.Fields(text))
}
