package provider

import (
	"context"
	"net/http"
)

const mistralBaseURL = "https://api.mistral.ai/v1"

// Mistral serves transcription (Voxtral) and text generation through the
// Mistral platform API, which mirrors the OpenAI REST shape.
type Mistral struct {
	compat openaiCompat
}

// NewMistral constructs a Mistral provider; an empty key leaves it unconfigured.
func NewMistral(client *http.Client, key string) *Mistral {
	return &Mistral{compat: openaiCompat{
		id:                "mistral",
		baseURL:           mistralBaseURL,
		defaultChatModel:  "mistral-small-latest",
		defaultAudioModel: "voxtral-mini-latest",
		client:            client,
		key:               key,
	}}
}

func (m *Mistral) UpdateKey(key string) { m.compat.UpdateKey(key) }

func (m *Mistral) Configured() bool { return m.compat.Configured() }

func (m *Mistral) Transcribe(ctx context.Context, audio []byte, model, language string) (TranscriptionResult, error) {
	return m.compat.transcribe(ctx, audio, model, language)
}

func (m *Mistral) Complete(ctx context.Context, prompt, model string) (string, error) {
	return m.compat.complete(ctx, prompt, model, false)
}

func (m *Mistral) CompleteJSON(ctx context.Context, prompt, model string) (string, error) {
	return m.compat.complete(ctx, prompt, model, true)
}

func (m *Mistral) ValidateKey(ctx context.Context, candidate string) KeyValidation {
	return m.compat.validateKey(ctx, candidate)
}
