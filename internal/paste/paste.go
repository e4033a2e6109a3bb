// Package paste injects text at the cursor through the clipboard and
// simulated key chords.
package paste

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// ErrSimulationFailed marks OS input injection failures. The pasted text is
// left on the clipboard so the user can paste manually.
var ErrSimulationFailed = errors.New("input simulation failed")

const (
	// clipboardSettleDelay gives the window manager time to observe a
	// clipboard write before the paste chord fires.
	clipboardSettleDelay = 50 * time.Millisecond
	// copySettleDelay gives the focused application time to populate the
	// clipboard after a simulated copy chord.
	copySettleDelay = 150 * time.Millisecond
	// linuxWarmupDelay lets the uinput device settle after creation, per
	// keybd_event's documented requirement.
	linuxWarmupDelay = 2 * time.Second
)

// Selection is the result of copying the user's current selection.
type Selection struct {
	SelectedText      string
	PreviousClipboard string
}

// Injector is the paste collaborator the controllers drive.
type Injector interface {
	Paste(text string) error
	CopySelection() (Selection, error)
	RestoreClipboard(text string) error
}

// Keyboard implements Injector with a clipboard handoff plus simulated
// ctrl+V / ctrl+C chords.
type Keyboard struct {
	bonding keybd_event.KeyBonding

	// Seams for tests; production wiring uses the real clipboard and chords.
	read  func() (string, error)
	write func(string) error
	chord func(key int) error
	sleep func(time.Duration)
}

// NewKeyboard prepares the input simulation device.
func NewKeyboard() (*Keyboard, error) {
	bonding, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("prepare key simulation: %w", err)
	}
	if runtime.GOOS == "linux" {
		time.Sleep(linuxWarmupDelay)
	}

	k := &Keyboard{
		bonding: bonding,
		read:    clipboard.ReadAll,
		write:   clipboard.WriteAll,
		sleep:   time.Sleep,
	}
	k.chord = k.pressCtrl
	return k, nil
}

// pressCtrl fires ctrl plus one key through the simulation device.
func (k *Keyboard) pressCtrl(key int) error {
	k.bonding.Clear()
	k.bonding.HasCTRL(true)
	k.bonding.SetKeys(key)
	return k.bonding.Launching()
}

// Paste writes text to the clipboard and fires ctrl+V. On chord failure the
// text stays on the clipboard as the degraded manual path.
func (k *Keyboard) Paste(text string) error {
	if text == "" {
		return nil
	}
	if err := k.write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	k.sleep(clipboardSettleDelay)

	if err := k.chord(keybd_event.VK_V); err != nil {
		return fmt.Errorf("%w: %v", ErrSimulationFailed, err)
	}
	k.sleep(clipboardSettleDelay)
	return nil
}

// CopySelection captures the focused application's current selection by
// clearing the clipboard, firing ctrl+C, and reading what arrives. The
// previous clipboard contents are returned for the caller to restore.
func (k *Keyboard) CopySelection() (Selection, error) {
	previous, err := k.read()
	if err != nil {
		previous = ""
	}
	if err := k.write(""); err != nil {
		return Selection{PreviousClipboard: previous}, fmt.Errorf("clear clipboard: %w", err)
	}

	if err := k.chord(keybd_event.VK_C); err != nil {
		return Selection{PreviousClipboard: previous}, fmt.Errorf("%w: %v", ErrSimulationFailed, err)
	}
	k.sleep(copySettleDelay)

	selected, err := k.read()
	if err != nil {
		return Selection{PreviousClipboard: previous}, fmt.Errorf("read clipboard: %w", err)
	}
	return Selection{SelectedText: selected, PreviousClipboard: previous}, nil
}

// RestoreClipboard puts the saved clipboard contents back.
func (k *Keyboard) RestoreClipboard(text string) error {
	return k.write(text)
}
