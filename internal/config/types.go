// Package config defines, defaults, and validates murmur runtime settings.
package config

// ProcessingMode selects how much rewriting the LLM applies after transcription.
type ProcessingMode string

const (
	ModeRaw    ProcessingMode = "raw"
	ModeClean  ProcessingMode = "clean"
	ModePolish ProcessingMode = "polish"
)

// ActivationMode selects how the primary hotkey drives recording.
type ActivationMode string

const (
	ActivationPushToTalk ActivationMode = "push-to-talk"
	ActivationToggle     ActivationMode = "toggle"
)

// Settings is one immutable snapshot of the persisted configuration.
// Callers always receive a deep copy; mutating a snapshot never affects
// the store or in-flight operations.
type Settings struct {
	Transcription TranscriptionConfig `json:"transcription"`
	Generation    GenerationConfig    `json:"generation"`
	APIKeys       map[string]string   `json:"apiKeys"`
	Hotkeys       HotkeyConfig        `json:"hotkeys"`
	Capture       CaptureConfig       `json:"capture"`
	Correction    CorrectionConfig    `json:"correction"`
	Dictionary    []string            `json:"dictionary"`
	History       HistoryConfig       `json:"history"`
}

// TranscriptionConfig selects the speech-to-text backend.
type TranscriptionConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"` // "auto" disables the language hint
}

// GenerationConfig selects the post-processing text backend.
type GenerationConfig struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Mode     ProcessingMode `json:"mode"`
}

// HotkeyConfig holds the persisted key bindings.
type HotkeyConfig struct {
	PushToTalkKey  string         `json:"pushToTalkKey"`
	ToggleKey      string         `json:"toggleKey"`
	CorrectionKey  string         `json:"correctionKey"`
	ActivationMode ActivationMode `json:"activationMode"`
}

// CaptureConfig selects the audio capture backend and input device.
type CaptureConfig struct {
	Backend string `json:"backend"` // pulse | portaudio
	Input   string `json:"input"`   // device id or "default"
}

// CorrectionConfig controls the selection-correction flow prompt.
type CorrectionConfig struct {
	CustomPrompt string `json:"customPrompt"` // empty selects the fixed template
}

// HistoryConfig controls local transcription history retention.
type HistoryConfig struct {
	Enable  bool `json:"enable"`
	MaxRows int  `json:"maxRows"`
}
