package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"murmur/internal/config"
	"murmur/internal/provider"
)

// fakeCompleter scripts both completion paths and records the prompts seen.
type fakeCompleter struct {
	jsonResponse  string
	jsonErr       error
	plainResponse string
	plainErr      error

	jsonCalls  int
	plainCalls int
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, _ string) (string, error) {
	f.plainCalls++
	f.lastPrompt = prompt
	return f.plainResponse, f.plainErr
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, prompt, _ string) (string, error) {
	f.jsonCalls++
	f.lastPrompt = prompt
	return f.jsonResponse, f.jsonErr
}

type fakeTranscriber struct {
	result provider.TranscriptionResult
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string, string) (provider.TranscriptionResult, error) {
	f.calls++
	return f.result, f.err
}

func TestTranscriptionUnknownProvider(t *testing.T) {
	r := NewTranscription()
	_, err := r.Transcribe(context.Background(), "nope", nil, "", "")
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, provider.KindUnknownProvider, perr.Kind)
}

func TestTranscriptionDispatch(t *testing.T) {
	backend := &fakeTranscriber{result: provider.TranscriptionResult{Text: "hi"}}
	r := NewTranscription()
	r.Register("groq", backend)

	result, err := r.Transcribe(context.Background(), "groq", []byte("RIFF"), "m", "en")
	require.NoError(t, err)
	require.Equal(t, "hi", result.Text)
	require.Equal(t, 1, backend.calls)
}

func TestTextGenerationUnknownProvider(t *testing.T) {
	g := NewTextGeneration()
	_, err := g.Complete(context.Background(), "nope", "p", "m")
	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, provider.KindUnknownProvider, perr.Kind)
}

func TestCompletePrefersJSONMode(t *testing.T) {
	backend := &fakeCompleter{jsonResponse: `{"text": "hello"}`}
	g := NewTextGeneration()
	g.Register("groq", backend)

	text, err := g.Complete(context.Background(), "groq", "p", "m")
	require.NoError(t, err)
	require.Equal(t, "hello", text)
	require.Equal(t, 1, backend.jsonCalls)
	require.Zero(t, backend.plainCalls)
}

func TestCompleteStripsUnparseableJSONModeOutput(t *testing.T) {
	backend := &fakeCompleter{jsonResponse: "Here's the corrected text:\n\nHello there"}
	g := NewTextGeneration()
	g.Register("groq", backend)

	text, err := g.Complete(context.Background(), "groq", "p", "m")
	require.NoError(t, err)
	require.Equal(t, "Hello there", text)
	require.Zero(t, backend.plainCalls)
}

func TestCompleteFallsBackWhenJSONModeRejected(t *testing.T) {
	backend := &fakeCompleter{
		jsonErr:       provider.NewError("groq", provider.KindUnsupportedModel, "json mode unsupported"),
		plainResponse: `"Hello there"`,
	}
	g := NewTextGeneration()
	g.Register("groq", backend)

	text, err := g.Complete(context.Background(), "groq", "p", "m")
	require.NoError(t, err)
	require.Equal(t, "Hello there", text)
	require.Equal(t, 1, backend.jsonCalls)
	require.Equal(t, 1, backend.plainCalls)
}

func TestCompleteSurfacesFallbackError(t *testing.T) {
	wantErr := provider.NewError("groq", provider.KindNetwork, "down")
	backend := &fakeCompleter{
		jsonErr:  provider.NewError("groq", provider.KindUnsupportedModel, "no json mode"),
		plainErr: wantErr,
	}
	g := NewTextGeneration()
	g.Register("groq", backend)

	_, err := g.Complete(context.Background(), "groq", "p", "m")
	require.ErrorIs(t, err, wantErr)
}

func TestProcessRawModeSkipsBackend(t *testing.T) {
	backend := &fakeCompleter{jsonResponse: `{"text": "never"}`}
	g := NewTextGeneration()
	g.Register("groq", backend)

	result, err := g.Process(context.Background(), "um so hi", ProcessOptions{
		Provider: "groq",
		Model:    "m",
		Mode:     config.ModeRaw,
	})
	require.NoError(t, err)
	require.Equal(t, "um so hi", result.OriginalText)
	require.Equal(t, "um so hi", result.ProcessedText)
	require.Zero(t, backend.jsonCalls)
	require.Zero(t, backend.plainCalls)
}

func TestProcessCleanMode(t *testing.T) {
	backend := &fakeCompleter{jsonResponse: `{"text": "I think we should go."}`}
	g := NewTextGeneration()
	g.Register("groq", backend)

	result, err := g.Process(context.Background(), "um so basically I think we should uh go", ProcessOptions{
		Provider: "groq",
		Model:    "llama-3.3-70b-versatile",
		Mode:     config.ModeClean,
	})
	require.NoError(t, err)
	require.Equal(t, "um so basically I think we should uh go", result.OriginalText)
	require.Equal(t, "I think we should go.", result.ProcessedText)
	require.Contains(t, backend.lastPrompt, "transcription cleanup assistant")
	require.Contains(t, backend.lastPrompt, "um so basically I think we should uh go")
	require.Contains(t, backend.lastPrompt, `{"text"`)
}

func TestProcessAppendsDictionaryHints(t *testing.T) {
	backend := &fakeCompleter{jsonResponse: `{"text": "ok"}`}
	g := NewTextGeneration()
	g.Register("groq", backend)

	_, err := g.Process(context.Background(), "kubernetes config", ProcessOptions{
		Provider:   "groq",
		Mode:       config.ModePolish,
		Dictionary: []string{"Kubernetes", "kubectl"},
	})
	require.NoError(t, err)
	require.Contains(t, backend.lastPrompt, "Vocabulary hints")
	require.Contains(t, backend.lastPrompt, "Kubernetes, kubectl")
}

func TestProcessUnknownMode(t *testing.T) {
	g := NewTextGeneration()
	g.Register("groq", &fakeCompleter{})
	_, err := g.Process(context.Background(), "hi", ProcessOptions{Provider: "groq", Mode: "shout"})
	require.Error(t, err)
}
