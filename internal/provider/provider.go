// Package provider implements the interchangeable transcription and
// text-generation backends and their shared error taxonomy.
package provider

import "context"

// Segment is one timed slice of a transcription.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// TranscriptionResult is the normalized output of every transcription backend.
type TranscriptionResult struct {
	Text            string
	DurationSeconds float64
	Language        string
	Segments        []Segment
}

// KeyValidation is the outcome of probing a candidate API key.
type KeyValidation struct {
	Valid bool
	Error string
}

// Transcriber converts one audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, model string, language string) (TranscriptionResult, error)
}

// Completer runs a prompt through a text-generation backend.
// CompleteJSON requests a constrained JSON-object output mode; callers must
// not assume the result parses as JSON, the backend may ignore the request.
type Completer interface {
	Complete(ctx context.Context, prompt string, model string) (string, error)
	CompleteJSON(ctx context.Context, prompt string, model string) (string, error)
}

// KeyValidator probes whether a candidate key authenticates, via the
// backend's cheapest read-only request. Stored configuration is never touched.
type KeyValidator interface {
	ValidateKey(ctx context.Context, candidate string) KeyValidation
}

// Keyed is implemented by providers whose key can be swapped at runtime.
// An empty key moves the provider to its unconfigured state: requests fail
// fast with KindUnauthorized instead of hitting the network.
type Keyed interface {
	UpdateKey(key string)
	Configured() bool
}
