package app

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"murmur/internal/config"
	"murmur/internal/provider"
	"murmur/internal/router"
)

// backends holds one instance of every provider, constructed once per
// process and re-keyed in place on settings reloads.
type backends struct {
	groq      *provider.Groq
	openai    *provider.OpenAI
	mistral   *provider.Mistral
	anthropic *provider.Anthropic
	gemini    *provider.Gemini
	ollama    *provider.Ollama
	whisper   *provider.WhisperLocal
}

func newBackends(client *http.Client, settings config.Settings) *backends {
	return &backends{
		groq:      provider.NewGroq(client, settings.APIKeys["groq"]),
		openai:    provider.NewOpenAI(client, settings.APIKeys["openai"]),
		mistral:   provider.NewMistral(client, settings.APIKeys["mistral"]),
		anthropic: provider.NewAnthropic(client, settings.APIKeys["anthropic"]),
		gemini:    provider.NewGemini(client, settings.APIKeys["gemini"]),
		ollama:    provider.NewOllama(client),
		whisper:   provider.NewWhisperLocal(whisperDir(), client),
	}
}

// register installs every backend under its provider id.
func (b *backends) register(transcription *router.Transcription, generation *router.TextGeneration) {
	transcription.Register("groq", b.groq)
	transcription.Register("openai", b.openai)
	transcription.Register("mistral", b.mistral)
	transcription.Register("whisper-local", b.whisper)

	generation.Register("groq", b.groq)
	generation.Register("openai", b.openai)
	generation.Register("anthropic", b.anthropic)
	generation.Register("gemini", b.gemini)
	generation.Register("mistral", b.mistral)
	generation.Register("ollama", b.ollama)
}

// applyKeys pushes the snapshot's API keys into every keyed backend, moving
// providers between configured and unconfigured without a restart.
func (b *backends) applyKeys(settings config.Settings) {
	keyed := map[string]provider.Keyed{
		"groq":      b.groq,
		"openai":    b.openai,
		"mistral":   b.mistral,
		"anthropic": b.anthropic,
		"gemini":    b.gemini,
	}
	for id, backend := range keyed {
		backend.UpdateKey(settings.APIKeys[id])
	}
}

// validator returns the key-validation surface for a provider id.
func (b *backends) validator(providerID string) (provider.KeyValidator, bool) {
	switch providerID {
	case "groq":
		return b.groq, true
	case "openai":
		return b.openai, true
	case "mistral":
		return b.mistral, true
	case "anthropic":
		return b.anthropic, true
	case "gemini":
		return b.gemini, true
	default:
		return nil, false
	}
}

// whisperDir resolves the whisper.cpp install root under the user data dir.
func whisperDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "whisper")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "murmur", "whisper")
	}
	return filepath.Join(home, ".local", "share", "murmur", "whisper")
}
