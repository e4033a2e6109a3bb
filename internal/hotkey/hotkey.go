// Package hotkey turns global key chords into semantic dictation events.
package hotkey

import (
	"fmt"
	"strconv"
	"strings"

	hk "golang.design/x/hotkey"
)

// Binding is one parsed global key chord.
type Binding struct {
	Mods []hk.Modifier
	Key  hk.Key
	spec string
}

func (b Binding) String() string {
	return b.spec
}

// Parse reads a chord spec like "ctrl+shift+space". The last token is the
// key; every other token is a modifier. Registration matches the exact
// modifier set, so "ctrl+space" does not fire on ctrl+shift+space.
func Parse(spec string) (Binding, error) {
	if strings.TrimSpace(spec) == "" {
		return Binding{}, fmt.Errorf("empty hotkey")
	}

	parts := strings.Split(spec, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(parts[i]))
	}

	binding := Binding{spec: spec}
	keyToken := parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl", "control":
			binding.Mods = append(binding.Mods, hk.ModCtrl)
		case "shift":
			binding.Mods = append(binding.Mods, hk.ModShift)
		case "alt", "option", "menu":
			binding.Mods = append(binding.Mods, modAlt)
		case "meta", "win", "super", "cmd":
			binding.Mods = append(binding.Mods, modMeta)
		default:
			return Binding{}, fmt.Errorf("unknown modifier %q in hotkey %q", p, spec)
		}
	}

	key, err := parseKey(keyToken)
	if err != nil {
		return Binding{}, fmt.Errorf("hotkey %q: %w", spec, err)
	}
	binding.Key = key
	return binding, nil
}

func parseKey(token string) (hk.Key, error) {
	if len(token) == 1 {
		ch := token[0]
		if ch >= 'a' && ch <= 'z' {
			return letterKeys[ch-'a'], nil
		}
		if ch >= '0' && ch <= '9' {
			return digitKeys[ch-'0'], nil
		}
	}

	switch token {
	case "space":
		return hk.KeySpace, nil
	case "enter", "return":
		return hk.KeyReturn, nil
	case "esc", "escape":
		return hk.KeyEscape, nil
	case "tab":
		return hk.KeyTab, nil
	case "delete":
		return hk.KeyDelete, nil
	case "up":
		return hk.KeyUp, nil
	case "down":
		return hk.KeyDown, nil
	case "left":
		return hk.KeyLeft, nil
	case "right":
		return hk.KeyRight, nil
	}

	if strings.HasPrefix(token, "f") {
		if n, err := strconv.Atoi(strings.TrimPrefix(token, "f")); err == nil && n >= 1 && n <= len(functionKeys) {
			return functionKeys[n-1], nil
		}
	}
	return 0, fmt.Errorf("unsupported key token %q", token)
}

var letterKeys = [26]hk.Key{
	hk.KeyA, hk.KeyB, hk.KeyC, hk.KeyD, hk.KeyE, hk.KeyF, hk.KeyG,
	hk.KeyH, hk.KeyI, hk.KeyJ, hk.KeyK, hk.KeyL, hk.KeyM, hk.KeyN,
	hk.KeyO, hk.KeyP, hk.KeyQ, hk.KeyR, hk.KeyS, hk.KeyT, hk.KeyU,
	hk.KeyV, hk.KeyW, hk.KeyX, hk.KeyY, hk.KeyZ,
}

var digitKeys = [10]hk.Key{
	hk.Key0, hk.Key1, hk.Key2, hk.Key3, hk.Key4,
	hk.Key5, hk.Key6, hk.Key7, hk.Key8, hk.Key9,
}

var functionKeys = [12]hk.Key{
	hk.KeyF1, hk.KeyF2, hk.KeyF3, hk.KeyF4, hk.KeyF5, hk.KeyF6,
	hk.KeyF7, hk.KeyF8, hk.KeyF9, hk.KeyF10, hk.KeyF11, hk.KeyF12,
}
