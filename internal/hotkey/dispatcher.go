package hotkey

import (
	"fmt"
	"strings"
	"sync"

	hk "golang.design/x/hotkey"

	"murmur/internal/config"
)

// Event is one semantic hotkey notification.
type Event int

const (
	// EventActivateDown fires when the recording chord is pressed.
	EventActivateDown Event = iota
	// EventActivateUp fires when the recording chord is released.
	EventActivateUp
	// EventCorrectDown fires when the correction chord is pressed.
	EventCorrectDown
)

// listener is one live global hotkey registration.
type listener interface {
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
	Unregister() error
}

// registrar installs bindings with the OS. Swapped for a fake in tests.
type registrar interface {
	Register(b Binding) (listener, error)
}

// Dispatcher owns the active hotkey registrations and publishes semantic
// events on a single channel. Re-binding replaces the registrations wholesale
// so a settings change never leaves a stale listener firing.
type Dispatcher struct {
	reg    registrar
	events chan Event

	mu     sync.Mutex
	active []listener
	stop   chan struct{}
}

// NewDispatcher builds a dispatcher bound to the OS hotkey facility.
func NewDispatcher() *Dispatcher {
	return newDispatcher(systemRegistrar{})
}

func newDispatcher(reg registrar) *Dispatcher {
	return &Dispatcher{
		reg:    reg,
		events: make(chan Event, 16),
	}
}

// Events returns the single channel every semantic event is published on.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// UpdateBindings tears down current registrations and installs the chords
// from cfg. The activation chord follows the activation mode. The correction
// chord is optional; an empty spec leaves correction unbound.
func (d *Dispatcher) UpdateBindings(cfg config.HotkeyConfig) error {
	activateSpec := cfg.PushToTalkKey
	if cfg.ActivationMode == config.ActivationToggle {
		activateSpec = cfg.ToggleKey
	}
	activate, err := Parse(activateSpec)
	if err != nil {
		return fmt.Errorf("activation hotkey: %w", err)
	}
	var correct Binding
	wantCorrect := strings.TrimSpace(cfg.CorrectionKey) != ""
	if wantCorrect {
		correct, err = Parse(cfg.CorrectionKey)
		if err != nil {
			return fmt.Errorf("correction hotkey: %w", err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()

	activateL, err := d.reg.Register(activate)
	if err != nil {
		return fmt.Errorf("register %s: %w", activate, err)
	}

	stop := make(chan struct{})
	d.active = []listener{activateL}
	d.stop = stop
	go d.forward(activateL, stop, EventActivateDown, EventActivateUp)

	if wantCorrect {
		correctL, err := d.reg.Register(correct)
		if err != nil {
			d.teardownLocked()
			return fmt.Errorf("register %s: %w", correct, err)
		}
		d.active = append(d.active, correctL)
		go d.forwardDown(correctL, stop, EventCorrectDown)
	}
	return nil
}

// Close unregisters everything and stops the forwarding goroutines.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
}

func (d *Dispatcher) teardownLocked() {
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	for _, l := range d.active {
		_ = l.Unregister()
	}
	d.active = nil
}

func (d *Dispatcher) forward(l listener, stop <-chan struct{}, down, up Event) {
	for {
		select {
		case <-stop:
			return
		case <-l.Keydown():
			d.events <- down
		case <-l.Keyup():
			d.events <- up
		}
	}
}

func (d *Dispatcher) forwardDown(l listener, stop <-chan struct{}, down Event) {
	for {
		select {
		case <-stop:
			return
		case <-l.Keydown():
			d.events <- down
		case <-l.Keyup():
		}
	}
}

// systemRegistrar backs the dispatcher with golang.design/x/hotkey.
type systemRegistrar struct{}

func (systemRegistrar) Register(b Binding) (listener, error) {
	native := hk.New(b.Mods, b.Key)
	if err := native.Register(); err != nil {
		return nil, err
	}
	l := &systemListener{
		native: native,
		down:   make(chan struct{}, 4),
		up:     make(chan struct{}, 4),
		quit:   make(chan struct{}),
	}
	go l.pump()
	return l, nil
}

type systemListener struct {
	native *hk.Hotkey
	down   chan struct{}
	up     chan struct{}
	quit   chan struct{}
}

// pump adapts the library's event channels to plain signals.
func (l *systemListener) pump() {
	for {
		select {
		case <-l.quit:
			return
		case <-l.native.Keydown():
			select {
			case l.down <- struct{}{}:
			default:
			}
		case <-l.native.Keyup():
			select {
			case l.up <- struct{}{}:
			default:
			}
		}
	}
}

func (l *systemListener) Keydown() <-chan struct{} { return l.down }
func (l *systemListener) Keyup() <-chan struct{}   { return l.up }

func (l *systemListener) Unregister() error {
	close(l.quit)
	return l.native.Unregister()
}
