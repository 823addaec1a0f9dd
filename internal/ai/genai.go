package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// GenAICompleter calls the Gemini API.
type GenAICompleter struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
}

// NewGenAICompleter creates a Gemini-backed completer.
// It returns ErrNotConfigured when apiKey is empty.
func NewGenAICompleter(ctx context.Context, apiKey, model string, maxOutputTokens int) (*GenAICompleter, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAICompleter{
		client:          client,
		model:           model,
		maxOutputTokens: int32(maxOutputTokens),
	}, nil
}

// Complete issues one GenerateContent call.
func (c *GenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	if c.maxOutputTokens > 0 {
		cfg.MaxOutputTokens = c.maxOutputTokens
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		if isCredentialError(err) {
			return "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
		}
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}

func isCredentialError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}
	return false
}
