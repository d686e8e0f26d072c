// Package bedrock adapts Amazon Bedrock's Anthropic messages API to llm.Client.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"compliance-backend/internal/llm"
)

const (
	providerName     = "bedrock"
	anthropicVersion = "bedrock-2023-05-31"
	maxTokens        = 4096

	// DefaultModelID is used when BEDROCK_MODEL_ID is unset.
	DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"
)

// InvokeAPI is the subset of the Bedrock runtime client the adapter uses.
type InvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client implements llm.Client on top of InvokeModel.
type Client struct {
	api     InvokeAPI
	modelID string
}

// NewClient constructs a client for modelID.
func NewClient(api InvokeAPI, modelID string) *Client {
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultModelID
	}
	return &Client{api: api, modelID: modelID}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []message `json:"messages"`
}

type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends prompt as a single user message and returns the first text block.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		Messages:         []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", classify(err)
	}

	var parsed invokeResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", &llm.ProviderError{Kind: llm.KindUnknown, Provider: providerName, Err: fmt.Errorf("decode response body: %w", err)}
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", &llm.ProviderError{Kind: llm.KindUnknown, Provider: providerName, Err: errors.New("response has no text content")}
	}
	return parsed.Content[0].Text, nil
}

func classify(err error) error {
	kind := llm.KindUnknown
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		kind = kindFor(apiErr.ErrorCode())
	}
	return &llm.ProviderError{Kind: kind, Provider: providerName, Err: err}
}

func kindFor(code string) llm.Kind {
	switch code {
	case "AccessDeniedException", "UnrecognizedClientException":
		return llm.KindAccessDenied
	case "ValidationException", "ResourceNotFoundException":
		return llm.KindInvalidRequest
	case "ThrottlingException":
		return llm.KindRateLimited
	case "ServiceQuotaExceededException":
		return llm.KindQuotaExceeded
	}
	return llm.KindUnknown
}

var _ llm.Client = (*Client)(nil)
