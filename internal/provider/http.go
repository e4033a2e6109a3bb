package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// requestTimeout bounds every provider HTTP call; backends stream nothing,
// so one generous ceiling covers transcription uploads and completions alike.
const requestTimeout = 120 * time.Second

// NewHTTPClient builds the shared provider transport with HTTP/2 enabled.
func NewHTTPClient() *http.Client {
	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	_ = http2.ConfigureTransport(tr)
	return &http.Client{
		Transport: tr,
		Timeout:   requestTimeout,
	}
}

// apiError is the error envelope shape shared by the OpenAI-style backends.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// classifyHTTP maps a non-2xx response to the provider error taxonomy.
func classifyHTTP(providerID string, status int, body []byte) *Error {
	message := strings.TrimSpace(string(body))
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	kind := KindNetwork
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindUnauthorized
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status == http.StatusNotFound,
		status == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "model"):
		kind = KindUnsupportedModel
	}

	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return NewError(providerID, kind, "%s", message)
}

// doJSON posts a JSON payload and decodes a JSON response into out.
func doJSON(ctx context.Context, client *http.Client, providerID, method, url string, headers map[string]string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return WrapError(providerID, KindNetwork, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return WrapError(providerID, KindNetwork, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return WrapError(providerID, KindNetwork, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if err != nil {
		return WrapError(providerID, KindNetwork, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyHTTP(providerID, resp.StatusCode, responseBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return WrapError(providerID, KindNetwork, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// doMultipartAudio uploads one WAV buffer plus form fields and decodes JSON.
func doMultipartAudio(ctx context.Context, client *http.Client, providerID, url string, headers map[string]string, audio []byte, fields map[string]string, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return WrapError(providerID, KindNetwork, fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(audio); err != nil {
		return WrapError(providerID, KindNetwork, fmt.Errorf("write form file: %w", err))
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := writer.WriteField(k, v); err != nil {
			return WrapError(providerID, KindNetwork, fmt.Errorf("write form field %s: %w", k, err))
		}
	}
	if err := writer.Close(); err != nil {
		return WrapError(providerID, KindNetwork, fmt.Errorf("finalize form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return WrapError(providerID, KindNetwork, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return WrapError(providerID, KindNetwork, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if err != nil {
		return WrapError(providerID, KindNetwork, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyHTTP(providerID, resp.StatusCode, responseBody)
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return WrapError(providerID, KindNetwork, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
