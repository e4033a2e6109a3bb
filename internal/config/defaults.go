package config

// Default returns the canonical settings used when no store file is present.
func Default() Settings {
	return Settings{
		Transcription: TranscriptionConfig{
			Provider: "groq",
			Model:    "whisper-large-v3",
			Language: "auto",
		},
		Generation: GenerationConfig{
			Provider: "groq",
			Model:    "llama-3.3-70b-versatile",
			Mode:     ModeClean,
		},
		APIKeys: map[string]string{},
		Hotkeys: HotkeyConfig{
			PushToTalkKey:  "ctrl+shift+space",
			ToggleKey:      "f2",
			CorrectionKey:  "ctrl+shift+f2",
			ActivationMode: ActivationPushToTalk,
		},
		Capture: CaptureConfig{
			Backend: "pulse",
			Input:   "default",
		},
		Correction: CorrectionConfig{},
		Dictionary: nil,
		History: HistoryConfig{
			Enable:  true,
			MaxRows: 500,
		},
	}
}

// Clone deep-copies a settings snapshot.
func Clone(s Settings) Settings {
	out := s
	out.APIKeys = make(map[string]string, len(s.APIKeys))
	for provider, key := range s.APIKeys {
		out.APIKeys[provider] = key
	}
	if s.Dictionary != nil {
		out.Dictionary = append([]string(nil), s.Dictionary...)
	}
	return out
}
