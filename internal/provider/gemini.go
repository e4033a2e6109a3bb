package provider

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

// Gemini is a text-generation-only provider speaking the generateContent API.
type Gemini struct {
	baseURL string
	client  *http.Client

	mu  sync.RWMutex
	key string
}

// NewGemini constructs a Gemini provider; an empty key leaves it unconfigured.
func NewGemini(client *http.Client, key string) *Gemini {
	return &Gemini{
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		client:  client,
		key:     key,
	}
}

func (g *Gemini) UpdateKey(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.key = key
}

func (g *Gemini) Configured() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.key != ""
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) complete(ctx context.Context, prompt, model string, jsonMode bool) (string, error) {
	g.mu.RLock()
	key := g.key
	g.mu.RUnlock()
	if key == "" {
		return "", errUnconfigured("gemini")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	cfg := &geminiGenerationConfig{
		Temperature:     completionTemperature,
		MaxOutputTokens: completionMaxTokens,
	}
	if jsonMode {
		cfg.ResponseMimeType = "application/json"
	}
	payload := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: cfg,
	}

	endpoint := g.baseURL + "/models/" + url.PathEscape(model) + ":generateContent?key=" + url.QueryEscape(key)
	var response geminiResponse
	if err := doJSON(ctx, g.client, "gemini", http.MethodPost, endpoint, nil, payload, &response); err != nil {
		return "", err
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return response.Candidates[0].Content.Parts[0].Text, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt, model string) (string, error) {
	return g.complete(ctx, prompt, model, false)
}

func (g *Gemini) CompleteJSON(ctx context.Context, prompt, model string) (string, error) {
	return g.complete(ctx, prompt, model, true)
}

func (g *Gemini) ValidateKey(ctx context.Context, candidate string) KeyValidation {
	endpoint := g.baseURL + "/models?key=" + url.QueryEscape(candidate)
	if err := doJSON(ctx, g.client, "gemini", http.MethodGet, endpoint, nil, nil, nil); err != nil {
		return KeyValidation{Valid: false, Error: err.Error()}
	}
	return KeyValidation{Valid: true}
}
