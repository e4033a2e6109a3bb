//go:build darwin

package hotkey

import hk "golang.design/x/hotkey"

const (
	modAlt  = hk.ModOption
	modMeta = hk.ModCmd
)
