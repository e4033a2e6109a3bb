package provider

import (
	"context"
	"net/http"
)

const openaiBaseURL = "https://api.openai.com/v1"

// OpenAI serves transcription (whisper-1, gpt-4o-transcribe) and text
// generation through the OpenAI REST API.
type OpenAI struct {
	compat openaiCompat
}

// NewOpenAI constructs an OpenAI provider; an empty key leaves it unconfigured.
func NewOpenAI(client *http.Client, key string) *OpenAI {
	return &OpenAI{compat: openaiCompat{
		id:                "openai",
		baseURL:           openaiBaseURL,
		defaultChatModel:  "gpt-4o-mini",
		defaultAudioModel: "whisper-1",
		client:            client,
		key:               key,
	}}
}

func (o *OpenAI) UpdateKey(key string) { o.compat.UpdateKey(key) }

func (o *OpenAI) Configured() bool { return o.compat.Configured() }

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, model, language string) (TranscriptionResult, error) {
	return o.compat.transcribe(ctx, audio, model, language)
}

func (o *OpenAI) Complete(ctx context.Context, prompt, model string) (string, error) {
	return o.compat.complete(ctx, prompt, model, false)
}

func (o *OpenAI) CompleteJSON(ctx context.Context, prompt, model string) (string, error) {
	return o.compat.complete(ctx, prompt, model, true)
}

func (o *OpenAI) ValidateKey(ctx context.Context, candidate string) KeyValidation {
	return o.compat.validateKey(ctx, candidate)
}
