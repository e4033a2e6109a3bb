package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyHTTP(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{"unauthorized", 401, `{"error":{"message":"Invalid API Key"}}`, KindUnauthorized},
		{"forbidden", 403, ``, KindUnauthorized},
		{"rate limited", 429, `{"error":{"message":"Rate limit reached"}}`, KindRateLimited},
		{"not found", 404, ``, KindUnsupportedModel},
		{"bad model", 400, `{"error":{"message":"The model 'nope' does not exist"}}`, KindUnsupportedModel},
		{"bad request", 400, `{"error":{"message":"invalid temperature"}}`, KindNetwork},
		{"server error", 500, `internal`, KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyHTTP("groq", tt.status, []byte(tt.body))
			require.Equal(t, tt.kind, err.Kind)
			require.Equal(t, "groq", err.Provider)
		})
	}
}

func TestClassifyHTTPExtractsEnvelopeMessage(t *testing.T) {
	err := classifyHTTP("openai", 401, []byte(`{"error":{"message":"Incorrect API key provided"}}`))
	require.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestGroqCompleteSendsAuthAndModel(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	g := NewGroq(srv.Client(), "sk-test")
	g.compat.baseURL = srv.URL

	text, err := g.Complete(context.Background(), "say hello", "")
	require.NoError(t, err)
	require.Equal(t, "hello", text)
	require.Equal(t, "Bearer sk-test", auth)
	require.Equal(t, "llama-3.3-70b-versatile", got.Model)
	require.Nil(t, got.ResponseFormat)
}

func TestGroqCompleteJSONRequestsJSONObject(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"text\":\"hi\"}"}}]}`))
	}))
	defer srv.Close()

	g := NewGroq(srv.Client(), "sk-test")
	g.compat.baseURL = srv.URL

	text, err := g.CompleteJSON(context.Background(), "p", "m")
	require.NoError(t, err)
	require.Equal(t, `{"text":"hi"}`, text)
	require.NotNil(t, got.ResponseFormat)
	require.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Equal(t, "m", got.Model)
}

func TestGroqTranscribeMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-large-v3", r.FormValue("model"))
		require.Equal(t, "verbose_json", r.FormValue("response_format"))
		require.Empty(t, r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "audio.wav", header.Filename)

		w.Write([]byte(`{"text":"I think we should go.","language":"en","segments":[{"start":0,"end":1.5,"text":"I think we should go."}]}`))
	}))
	defer srv.Close()

	g := NewGroq(srv.Client(), "sk-test")
	g.compat.baseURL = srv.URL

	result, err := g.Transcribe(context.Background(), []byte("RIFFdata"), "", "auto")
	require.NoError(t, err)
	require.Equal(t, "I think we should go.", result.Text)
	require.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 1)
	require.GreaterOrEqual(t, result.DurationSeconds, 0.0)
}

func TestUnconfiguredProviderFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unconfigured provider must not hit the network")
	}))
	defer srv.Close()

	g := NewGroq(srv.Client(), "")
	g.compat.baseURL = srv.URL

	_, err := g.Complete(context.Background(), "p", "")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindUnauthorized, perr.Kind)

	_, err = g.Transcribe(context.Background(), nil, "", "")
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindUnauthorized, perr.Kind)
}

func TestUpdateKeyLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	g := NewGroq(srv.Client(), "")
	g.compat.baseURL = srv.URL
	require.False(t, g.Configured())

	g.UpdateKey("sk-new")
	require.True(t, g.Configured())
	_, err := g.Complete(context.Background(), "p", "")
	require.NoError(t, err)

	g.UpdateKey("")
	require.False(t, g.Configured())
	_, err = g.Complete(context.Background(), "p", "")
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, KindUnauthorized, perr.Kind)
}

func TestValidateKeyDoesNotTouchStoredKey(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer sk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	g := NewGroq(srv.Client(), "sk-stored")
	g.compat.baseURL = srv.URL

	require.True(t, g.ValidateKey(context.Background(), "sk-good").Valid)

	bad := g.ValidateKey(context.Background(), "sk-bad")
	require.False(t, bad.Valid)
	require.Contains(t, bad.Error, "Invalid API Key")

	require.Equal(t, []string{"Bearer sk-good", "Bearer sk-bad"}, seen)
	require.True(t, g.Configured())
}

func TestAnthropicCompleteExtractsTextBlock(t *testing.T) {
	var version, apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version = r.Header.Get("anthropic-version")
		apiKey = r.Header.Get("x-api-key")
		w.Write([]byte(`{"content":[{"type":"text","text":"refined"}]}`))
	}))
	defer srv.Close()

	a := NewAnthropic(srv.Client(), "sk-ant")
	a.baseURL = srv.URL

	text, err := a.Complete(context.Background(), "p", "")
	require.NoError(t, err)
	require.Equal(t, "refined", text)
	require.Equal(t, anthropicAPIVersion, version)
	require.Equal(t, "sk-ant", apiKey)
}

func TestGeminiJSONModeSetsResponseMimeType(t *testing.T) {
	var got geminiRequest
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"text\":\"hi\"}"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini(srv.Client(), "gm-key")
	g.baseURL = srv.URL

	text, err := g.CompleteJSON(context.Background(), "p", "")
	require.NoError(t, err)
	require.Equal(t, `{"text":"hi"}`, text)
	require.Equal(t, "gm-key", key)
	require.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
}

func TestOllamaNeverRequiresKey(t *testing.T) {
	o := NewOllama(http.DefaultClient)
	require.True(t, o.Configured())
	o.UpdateKey("ignored")
	require.True(t, o.Configured())
}

func TestOllamaCompleteAndListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			var got ollamaGenerateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			require.False(t, got.Stream)
			require.Equal(t, "json", got.Format)
			w.Write([]byte(`{"response":"{\"text\":\"local\"}"}`))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3.2"},{"name":"mistral"}]}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	o := NewOllama(srv.Client())
	o.baseURL = srv.URL

	text, err := o.CompleteJSON(context.Background(), "p", "llama3.2")
	require.NoError(t, err)
	require.Equal(t, `{"text":"local"}`, text)

	models, err := o.ListModels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"llama3.2", "mistral"}, models)
}
