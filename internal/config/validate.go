package config

import (
	"fmt"
	"strings"
)

// TranscriptionProviders lists the valid transcription provider ids.
var TranscriptionProviders = []string{"groq", "openai", "mistral", "whisper-local"}

// GenerationProviders lists the valid text-generation provider ids.
var GenerationProviders = []string{"groq", "openai", "anthropic", "gemini", "mistral", "ollama"}

// keylessProviders never require an API key: they run against local software.
var keylessProviders = map[string]bool{
	"whisper-local": true,
	"ollama":        true,
}

// RequiresKey reports whether a provider id needs a configured API key.
func RequiresKey(providerID string) bool {
	return !keylessProviders[providerID]
}

// HasUsableKey reports whether settings carry a dispatchable key for provider.
func (s Settings) HasUsableKey(providerID string) bool {
	if !RequiresKey(providerID) {
		return true
	}
	return strings.TrimSpace(s.APIKeys[providerID]) != ""
}

// Warning is a non-fatal validation message.
type Warning struct {
	Message string
}

// Validate enforces settings invariants and returns non-fatal warnings.
func Validate(s Settings) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if !contains(TranscriptionProviders, s.Transcription.Provider) {
		return nil, fmt.Errorf("transcription.provider must be one of: %s", strings.Join(TranscriptionProviders, ", "))
	}
	if !contains(GenerationProviders, s.Generation.Provider) {
		return nil, fmt.Errorf("generation.provider must be one of: %s", strings.Join(GenerationProviders, ", "))
	}
	switch s.Generation.Mode {
	case ModeRaw, ModeClean, ModePolish:
	default:
		return nil, fmt.Errorf("generation.mode must be one of: raw, clean, polish")
	}
	switch s.Hotkeys.ActivationMode {
	case ActivationPushToTalk, ActivationToggle:
	default:
		return nil, fmt.Errorf("hotkeys.activationMode must be one of: push-to-talk, toggle")
	}
	if strings.TrimSpace(s.Hotkeys.PushToTalkKey) == "" && strings.TrimSpace(s.Hotkeys.ToggleKey) == "" {
		return nil, fmt.Errorf("at least one of hotkeys.pushToTalkKey, hotkeys.toggleKey must be set")
	}
	backend := strings.ToLower(strings.TrimSpace(s.Capture.Backend))
	if backend != "pulse" && backend != "portaudio" {
		return nil, fmt.Errorf("capture.backend must be one of: pulse, portaudio")
	}
	if s.History.Enable && s.History.MaxRows <= 0 {
		return nil, fmt.Errorf("history.maxRows must be > 0 when history.enable=true")
	}

	if !s.HasUsableKey(s.Transcription.Provider) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("no API key configured for transcription provider %q; recording will refuse to start", s.Transcription.Provider)})
	}
	if s.Generation.Mode != ModeRaw && !s.HasUsableKey(s.Generation.Provider) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("no API key configured for generation provider %q; transcripts will be pasted unprocessed", s.Generation.Provider)})
	}

	return warnings, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
