package provider

import (
	"context"
	"net/http"
)

// Ollama generates text against a locally running Ollama server. It needs no
// API key, so Configured always reports true and key updates are ignored.
type Ollama struct {
	baseURL string
	client  *http.Client
}

// NewOllama constructs an Ollama provider pointed at the default local server.
func NewOllama(client *http.Client) *Ollama {
	return &Ollama{
		baseURL: "http://localhost:11434",
		client:  client,
	}
}

func (o *Ollama) UpdateKey(string) {}

func (o *Ollama) Configured() bool { return true }

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) complete(ctx context.Context, prompt, model string, jsonMode bool) (string, error) {
	if model == "" {
		model = "llama3.2"
	}
	payload := ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: completionTemperature,
			NumPredict:  completionMaxTokens,
		},
	}
	if jsonMode {
		payload.Format = "json"
	}

	var response ollamaGenerateResponse
	if err := doJSON(ctx, o.client, "ollama", http.MethodPost, o.baseURL+"/api/generate", nil, payload, &response); err != nil {
		return "", err
	}
	return response.Response, nil
}

func (o *Ollama) Complete(ctx context.Context, prompt, model string) (string, error) {
	return o.complete(ctx, prompt, model, false)
}

func (o *Ollama) CompleteJSON(ctx context.Context, prompt, model string) (string, error) {
	return o.complete(ctx, prompt, model, true)
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels reports the models the local server has pulled. Used by doctor
// to confirm the server is reachable.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	var response ollamaTagsResponse
	if err := doJSON(ctx, o.client, "ollama", http.MethodGet, o.baseURL+"/api/tags", nil, nil, &response); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(response.Models))
	for _, m := range response.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
