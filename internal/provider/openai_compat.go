package provider

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const (
	completionMaxTokens   = 4096
	completionTemperature = 0.3
)

// openaiCompat implements the OpenAI-style REST surface (chat completions,
// multipart audio transcriptions, model listing) shared by Groq, OpenAI,
// and Mistral, parameterized by provider id, base URL, and default models.
type openaiCompat struct {
	id                string
	baseURL           string
	defaultChatModel  string
	defaultAudioModel string
	client            *http.Client

	mu  sync.RWMutex
	key string
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (c *openaiCompat) UpdateKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
}

func (c *openaiCompat) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key != ""
}

func (c *openaiCompat) authHeaders() (map[string]string, error) {
	c.mu.RLock()
	key := c.key
	c.mu.RUnlock()
	if key == "" {
		return nil, errUnconfigured(c.id)
	}
	return map[string]string{"Authorization": "Bearer " + key}, nil
}

func (c *openaiCompat) complete(ctx context.Context, prompt, model string, jsonMode bool) (string, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return "", err
	}
	if model == "" {
		model = c.defaultChatModel
	}

	payload := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	}
	if jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var response chatResponse
	if err := doJSON(ctx, c.client, c.id, http.MethodPost, c.baseURL+"/chat/completions", headers, payload, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}

func (c *openaiCompat) transcribe(ctx context.Context, audio []byte, model, language string) (TranscriptionResult, error) {
	headers, err := c.authHeaders()
	if err != nil {
		return TranscriptionResult{}, err
	}
	if model == "" {
		model = c.defaultAudioModel
	}
	if language == "auto" {
		language = ""
	}

	started := time.Now()
	var response verboseTranscription
	fields := map[string]string{
		"model":           model,
		"language":        language,
		"response_format": "verbose_json",
	}
	if err := doMultipartAudio(ctx, c.client, c.id, c.baseURL+"/audio/transcriptions", headers, audio, fields, &response); err != nil {
		return TranscriptionResult{}, err
	}

	result := TranscriptionResult{
		Text:            response.Text,
		DurationSeconds: time.Since(started).Seconds(),
		Language:        response.Language,
	}
	for _, seg := range response.Segments {
		result.Segments = append(result.Segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return result, nil
}

// validateKey lists models with the candidate key as the minimal probe.
func (c *openaiCompat) validateKey(ctx context.Context, candidate string) KeyValidation {
	headers := map[string]string{"Authorization": "Bearer " + candidate}
	if err := doJSON(ctx, c.client, c.id, http.MethodGet, c.baseURL+"/models", headers, nil, nil); err != nil {
		return KeyValidation{Valid: false, Error: err.Error()}
	}
	return KeyValidation{Valid: true}
}
