//go:build linux

package hotkey

import hk "golang.design/x/hotkey"

// X11 modifier masks: Mod1 is alt, Mod4 is the super key.
const (
	modAlt  = hk.Mod1
	modMeta = hk.Mod4
)
