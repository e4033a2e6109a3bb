// Package router dispatches transcription and text-generation requests to
// registered provider backends and normalizes their raw output.
package router

import (
	"context"
	"sync"

	"murmur/internal/config"
	"murmur/internal/provider"
)

// CompletionResult pairs a transcript with its rewritten form.
type CompletionResult struct {
	OriginalText  string
	ProcessedText string
	Provider      string
	Model         string
}

// ProcessOptions selects the backend and rewrite behavior for one Process call.
type ProcessOptions struct {
	Provider   string
	Model      string
	Mode       config.ProcessingMode
	Dictionary []string
}

// Transcription routes audio to a transcription backend by provider id.
type Transcription struct {
	mu       sync.RWMutex
	backends map[string]provider.Transcriber
}

func NewTranscription() *Transcription {
	return &Transcription{backends: make(map[string]provider.Transcriber)}
}

// Register installs a backend under id, replacing any previous registration.
func (t *Transcription) Register(id string, backend provider.Transcriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.backends[id] = backend
}

func (t *Transcription) lookup(id string) (provider.Transcriber, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	backend, ok := t.backends[id]
	if !ok {
		return nil, provider.NewError(id, provider.KindUnknownProvider, "unknown transcription provider %q", id)
	}
	return backend, nil
}

// Transcribe runs audio through the backend registered under providerID.
func (t *Transcription) Transcribe(ctx context.Context, providerID string, audio []byte, model, language string) (provider.TranscriptionResult, error) {
	backend, err := t.lookup(providerID)
	if err != nil {
		return provider.TranscriptionResult{}, err
	}
	return backend.Transcribe(ctx, audio, model, language)
}

// TextGeneration routes prompts to a completion backend by provider id and
// applies the sanitized-completion fallback chain to every result.
type TextGeneration struct {
	mu       sync.RWMutex
	backends map[string]provider.Completer
}

func NewTextGeneration() *TextGeneration {
	return &TextGeneration{backends: make(map[string]provider.Completer)}
}

// Register installs a backend under id, replacing any previous registration.
func (g *TextGeneration) Register(id string, backend provider.Completer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.backends[id] = backend
}

func (g *TextGeneration) lookup(id string) (provider.Completer, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	backend, ok := g.backends[id]
	if !ok {
		return nil, provider.NewError(id, provider.KindUnknownProvider, "unknown generation provider %q", id)
	}
	return backend, nil
}

// Complete runs a sanitized completion against the backend registered under
// providerID and returns the extracted answer string.
func (g *TextGeneration) Complete(ctx context.Context, providerID, prompt, model string) (string, error) {
	backend, err := g.lookup(providerID)
	if err != nil {
		return "", err
	}
	return sanitizedCompletion(ctx, backend, prompt, model)
}

// Process rewrites a transcript according to the processing mode. Raw mode
// returns the text untouched without consulting any backend.
func (g *TextGeneration) Process(ctx context.Context, text string, opts ProcessOptions) (CompletionResult, error) {
	result := CompletionResult{
		OriginalText:  text,
		ProcessedText: text,
		Provider:      opts.Provider,
		Model:         opts.Model,
	}
	if opts.Mode == config.ModeRaw {
		return result, nil
	}

	prompt, err := buildPrompt(opts.Mode, text, opts.Dictionary)
	if err != nil {
		return CompletionResult{}, err
	}
	processed, err := g.Complete(ctx, opts.Provider, prompt, opts.Model)
	if err != nil {
		return CompletionResult{}, err
	}
	result.ProcessedText = processed
	return result, nil
}

// sanitizedCompletion prefers the backend's constrained JSON output mode and
// falls back to heuristic stripping when the backend ignores or rejects it.
func sanitizedCompletion(ctx context.Context, backend provider.Completer, prompt, model string) (string, error) {
	raw, err := backend.CompleteJSON(ctx, prompt, model)
	if err != nil {
		raw, err = backend.Complete(ctx, prompt, model)
		if err != nil {
			return "", err
		}
		return stripWrapping(raw), nil
	}
	if text, ok := extractJSONText(raw); ok {
		return text, nil
	}
	return stripWrapping(raw), nil
}
