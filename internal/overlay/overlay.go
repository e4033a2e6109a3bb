// Package overlay fans recording state out to the surfaces that render it.
package overlay

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"

	"murmur/internal/fsm"
)

// Update is one state broadcast. The controller emits exactly one Update per
// transition.
type Update struct {
	State              fsm.State
	WordCount          int
	Error              string
	NeedsConfiguration bool
}

// Broadcaster receives every controller transition.
type Broadcaster interface {
	Broadcast(Update)
}

// Multi delivers one update to several broadcasters in order.
type Multi []Broadcaster

func (m Multi) Broadcast(u Update) {
	for _, b := range m {
		b.Broadcast(u)
	}
}

// Fanout relays updates to channel subscribers without ever blocking the
// controller; a lagging subscriber loses intermediate states, not the
// controller's progress.
type Fanout struct {
	mu   sync.Mutex
	subs []chan Update
}

func NewFanout() *Fanout {
	return &Fanout{}
}

// Subscribe registers a new listener channel.
func (f *Fanout) Subscribe() <-chan Update {
	ch := make(chan Update, 16)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, ch)
	return ch
}

func (f *Fanout) Broadcast(u Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// DesktopNotifier mirrors terminal states as desktop notifications.
type DesktopNotifier struct {
	logger *slog.Logger
}

func NewDesktopNotifier(logger *slog.Logger) *DesktopNotifier {
	return &DesktopNotifier{logger: logger}
}

func (n *DesktopNotifier) Broadcast(u Update) {
	var title, body string
	switch {
	case u.NeedsConfiguration:
		title = "murmur needs configuration"
		body = "Add an API key for the configured provider to start dictating."
	case u.State == fsm.StateError:
		title = "murmur error"
		body = u.Error
		if body == "" {
			body = "dictation failed"
		}
	case u.State == fsm.StateComplete:
		title = "murmur"
		body = fmt.Sprintf("Pasted %d words", u.WordCount)
	default:
		return
	}

	// Notification delivery is best-effort and off the controller's path.
	go func() {
		if err := beeep.Notify(title, body, ""); err != nil && n.logger != nil {
			n.logger.Debug("desktop notification failed", "error", err.Error())
		}
	}()
}
