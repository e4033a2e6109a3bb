// Package store persists murmur settings and transcription history.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"murmur/internal/config"
)

// Settings is a JSON-file-backed settings store. Every read returns a deep
// copy, so callers can never mutate persisted state through a snapshot.
type Settings struct {
	mu      sync.Mutex
	path    string
	current config.Settings
}

// SettingsPath applies XDG/home fallback rules for the settings file location.
func SettingsPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "settings.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for settings fallback")
	}
	return filepath.Join(home, ".config", "murmur", "settings.json"), nil
}

// OpenSettings loads the settings file, creating it with defaults when absent.
func OpenSettings(path string) (*Settings, error) {
	s := &Settings{path: path, current: config.Default()}

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read settings %q: %w", path, err)
		}
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	// Unknown fields are dropped, absent fields keep defaults.
	loaded := config.Default()
	if err := json.Unmarshal(content, &loaded); err != nil {
		return nil, fmt.Errorf("parse settings %q: %w", path, err)
	}
	if loaded.APIKeys == nil {
		loaded.APIKeys = map[string]string{}
	}
	s.current = loaded
	return s, nil
}

// Path returns the backing file location.
func (s *Settings) Path() string {
	return s.path
}

// Get returns an isolated snapshot of the current settings.
func (s *Settings) Get() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return config.Clone(s.current)
}

// Set applies a mutation to a working copy, validates, persists, and returns
// the resulting snapshot. The mutation never sees live store state.
func (s *Settings) Set(mutate func(*config.Settings)) (config.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := config.Clone(s.current)
	mutate(&updated)
	if _, err := config.Validate(updated); err != nil {
		return config.Clone(s.current), err
	}

	s.current = updated
	if err := s.save(); err != nil {
		return config.Clone(s.current), err
	}
	return config.Clone(s.current), nil
}

// Reset restores defaults and persists them.
func (s *Settings) Reset() (config.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = config.Default()
	if err := s.save(); err != nil {
		return config.Settings{}, err
	}
	return config.Clone(s.current), nil
}

// Reload re-reads the settings file, picking up external edits.
func (s *Settings) Reload() (config.Settings, error) {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	fresh, err := OpenSettings(path)
	if err != nil {
		return config.Settings{}, err
	}

	s.mu.Lock()
	s.current = fresh.current
	snapshot := config.Clone(s.current)
	s.mu.Unlock()
	return snapshot, nil
}

func (s *Settings) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	content, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, append(content, '\n'), 0o600); err != nil {
		return fmt.Errorf("write settings %q: %w", s.path, err)
	}
	return nil
}
