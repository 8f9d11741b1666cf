// Package openai talks to OpenAI-compatible HTTP APIs (OpenAI, Nebius,
// Ollama's /v1) for query embeddings and LLM entity extraction.
package openai

import (
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// newClient builds a go-openai client for an API key and base URL.
// Ollama ignores the key, so an empty one is allowed.
func newClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// parseAPIError turns a go-openai failure into a readable error wrapping sentinel.
func parseAPIError(op string, err, sentinel error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w", op, reqErr.HTTPStatusCode, detail, sentinel)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", op, apiErr.HTTPStatusCode, apiErr.Message, sentinel)
	}

	return fmt.Errorf("%s request failed: %v: %w", op, err, sentinel)
}

// extractDetail reads the message from non-OpenAI error bodies:
// {"detail": "..."} (Nebius) or {"error": "..."} (Ollama).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string          `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	var msg string
	if json.Unmarshal(parsed.Error, &msg) == nil {
		return msg
	}
	return ""
}
