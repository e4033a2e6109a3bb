package provider

import (
	"context"
	"net/http"
	"sync"
)

const anthropicAPIVersion = "2023-06-01"

// Anthropic is a text-generation-only provider speaking the Messages API.
type Anthropic struct {
	baseURL string
	client  *http.Client

	mu  sync.RWMutex
	key string
}

// NewAnthropic constructs an Anthropic provider; an empty key leaves it
// unconfigured.
func NewAnthropic(client *http.Client, key string) *Anthropic {
	return &Anthropic{
		baseURL: "https://api.anthropic.com/v1",
		client:  client,
		key:     key,
	}
}

func (a *Anthropic) UpdateKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.key = key
}

func (a *Anthropic) Configured() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.key != ""
}

func (a *Anthropic) headers(key string) map[string]string {
	return map[string]string{
		"x-api-key":         key,
		"anthropic-version": anthropicAPIVersion,
	}
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *Anthropic) Complete(ctx context.Context, prompt, model string) (string, error) {
	a.mu.RLock()
	key := a.key
	a.mu.RUnlock()
	if key == "" {
		return "", errUnconfigured("anthropic")
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}

	payload := anthropicRequest{
		Model:     model,
		MaxTokens: completionMaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	var response anthropicResponse
	if err := doJSON(ctx, a.client, "anthropic", http.MethodPost, a.baseURL+"/messages", a.headers(key), payload, &response); err != nil {
		return "", err
	}
	for _, block := range response.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// CompleteJSON: the Messages API has no JSON-object output mode, so this
// degrades to a plain completion and relies on the caller's fallback parsing.
func (a *Anthropic) CompleteJSON(ctx context.Context, prompt, model string) (string, error) {
	return a.Complete(ctx, prompt, model)
}

func (a *Anthropic) ValidateKey(ctx context.Context, candidate string) KeyValidation {
	if err := doJSON(ctx, a.client, "anthropic", http.MethodGet, a.baseURL+"/models", a.headers(candidate), nil, nil); err != nil {
		return KeyValidation{Valid: false, Error: err.Error()}
	}
	return KeyValidation{Valid: true}
}
