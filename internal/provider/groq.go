package provider

import (
	"context"
	"net/http"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// Groq serves both transcription (Whisper) and text generation (chat models)
// behind Groq's OpenAI-compatible API.
type Groq struct {
	compat openaiCompat
}

// NewGroq constructs a Groq provider; an empty key leaves it unconfigured.
func NewGroq(client *http.Client, key string) *Groq {
	return &Groq{compat: openaiCompat{
		id:                "groq",
		baseURL:           groqBaseURL,
		defaultChatModel:  "llama-3.3-70b-versatile",
		defaultAudioModel: "whisper-large-v3",
		client:            client,
		key:               key,
	}}
}

func (g *Groq) UpdateKey(key string) { g.compat.UpdateKey(key) }

func (g *Groq) Configured() bool { return g.compat.Configured() }

func (g *Groq) Transcribe(ctx context.Context, audio []byte, model, language string) (TranscriptionResult, error) {
	return g.compat.transcribe(ctx, audio, model, language)
}

func (g *Groq) Complete(ctx context.Context, prompt, model string) (string, error) {
	return g.compat.complete(ctx, prompt, model, false)
}

func (g *Groq) CompleteJSON(ctx context.Context, prompt, model string) (string, error) {
	return g.compat.complete(ctx, prompt, model, true)
}

func (g *Groq) ValidateKey(ctx context.Context, candidate string) KeyValidation {
	return g.compat.validateKey(ctx, candidate)
}
