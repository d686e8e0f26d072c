package llm

import (
	"context"
	"errors"
)

// Client sends one prompt to a generative model and returns its raw text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("no AI provider configured")

// PlaceholderClient stands in when AI_PROVIDER=none. Its error is classified
// as access denied so analyses degrade to the fallback result.
type PlaceholderClient struct{}

// Complete always fails with an AccessDenied ProviderError.
func (PlaceholderClient) Complete(context.Context, string) (string, error) {
	return "", &ProviderError{Kind: KindAccessDenied, Provider: "none", Err: ErrNotConfigured}
}
