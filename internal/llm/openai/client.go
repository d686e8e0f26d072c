package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"compliance-backend/internal/llm"
)

const providerName = "openai"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient constructs a client. baseURL may be empty for the public API and
// a zero timeout means two minutes.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("OPENAI_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		api:   goopenai.NewClientWithConfig(cfg),
		model: model,
	}, nil
}

// Complete returns the raw model response for the prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxCompletionTokens: 4096,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if !isGPT5(c.model) {
		req.Temperature = 0.2
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.ProviderError{Kind: llm.KindUnknown, Provider: providerName, Err: errors.New("response missing choices")}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &llm.ProviderError{Kind: llm.KindUnknown, Provider: providerName, Err: errors.New("response empty content")}
	}
	return content, nil
}

func classify(err error) error {
	kind := llm.KindUnknown
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		kind = kindFor(apiErr.HTTPStatusCode, apiErr.Code)
	case errors.As(err, &reqErr):
		kind = kindFor(reqErr.HTTPStatusCode, nil)
	}
	return &llm.ProviderError{Kind: kind, Provider: providerName, Err: err}
}

func kindFor(status int, code any) llm.Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.KindAccessDenied
	case http.StatusBadRequest, http.StatusNotFound:
		return llm.KindInvalidRequest
	case http.StatusTooManyRequests:
		if s, ok := code.(string); ok && s == "insufficient_quota" {
			return llm.KindQuotaExceeded
		}
		return llm.KindRateLimited
	}
	return llm.KindUnknown
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
