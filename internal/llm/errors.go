package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a provider failure.
type Kind string

const (
	KindAccessDenied   Kind = "AccessDenied"
	KindInvalidRequest Kind = "InvalidRequest"
	KindRateLimited    Kind = "RateLimited"
	KindQuotaExceeded  Kind = "QuotaExceeded"
	KindUnknown        Kind = "Unknown"
)

// ProviderError is a failure reported by the model provider.
type ProviderError struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var accessPatterns = []string{
	"access denied",
	"not authorized",
	"could not resolve model",
}

// FallbackEligible reports whether the failure should degrade to a
// placeholder analysis instead of failing the request. Unknown failures
// qualify only when their message reads like an access problem.
func (e *ProviderError) FallbackEligible() bool {
	switch e.Kind {
	case KindAccessDenied, KindInvalidRequest, KindRateLimited, KindQuotaExceeded:
		return true
	}
	return looksLikeAccessProblem(e.Error())
}

// Reason is the short, user-facing explanation folded into fallback results.
func (e *ProviderError) Reason() string {
	switch e.Kind {
	case KindAccessDenied:
		return "model access denied"
	case KindInvalidRequest:
		return "invalid model request"
	case KindRateLimited:
		return "provider rate limit reached"
	case KindQuotaExceeded:
		return "provider quota exceeded"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown provider error"
}

// AsFallback returns the ProviderError in err's chain when it is fallback
// eligible.
func AsFallback(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return nil, false
	}
	return perr, perr.FallbackEligible()
}

func looksLikeAccessProblem(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range accessPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
