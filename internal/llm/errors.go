package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing_credential"
	KindCredential        ErrorKind = "credential_error"
	KindQuota             ErrorKind = "quota_error"
	KindModel             ErrorKind = "model_error"
	KindUnknown           ErrorKind = "unknown_error"
)

// ProviderError is the structured outcome of a failed routed call. Callers
// match it with errors.As and inspect the fields instead of parsing text.
type ProviderError struct {
	Kind     ErrorKind
	Provider ProviderName
	Message  string

	// UsedCallerKey is true when the caller's own credential was tried.
	UsedCallerKey bool
	// FallbackTried is true when the process credential was tried after a
	// credential failure of the caller's key.
	FallbackTried bool

	Err error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyRule maps lowercase substrings to a kind. Rules are evaluated in
// order and the first rule with any matching pattern wins.
type classifyRule struct {
	kind     ErrorKind
	patterns []string
	message  string // format with the provider name
}

var classifyRules = []classifyRule{
	{
		kind: KindCredential,
		patterns: []string{
			"unauthorized", "unauthenticated", "invalid api key", "invalid_api_key",
			"incorrect api key", "api key not valid", "api_key_invalid", "invalid x-api-key",
			"expired", "401", "403", "permission denied", "permission_denied",
			"forbidden", "authentication",
		},
		message: "%s rejected the API key (invalid, expired or unauthorized)",
	},
	{
		kind: KindQuota,
		patterns: []string{
			"quota", "billing", "insufficient_quota", "trial", "credit balance",
			"resource_exhausted", "rate limit", "rate_limit", "429",
		},
		message: "%s quota, billing or trial limit reached",
	},
	{
		kind: KindModel,
		patterns: []string{
			"model_not_found", "model not found", "unknown model", "unsupported model",
			"does not exist", "is not found", "decommissioned", "invalid model",
		},
		message: "%s does not support the requested model",
	},
}

// Classify turns a raw backend failure into a ProviderError. Timeouts and
// cancellations are always KindUnknown.
func Classify(provider ProviderName, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ProviderError{
			Kind:     KindUnknown,
			Provider: provider,
			Message:  fmt.Sprintf("%s request timed out or was cancelled", provider),
			Err:      err,
		}
	}

	text := strings.ToLower(err.Error())
	for _, rule := range classifyRules {
		for _, p := range rule.patterns {
			if strings.Contains(text, p) {
				return &ProviderError{
					Kind:     rule.kind,
					Provider: provider,
					Message:  fmt.Sprintf(rule.message, provider),
					Err:      err,
				}
			}
		}
	}

	return &ProviderError{
		Kind:     KindUnknown,
		Provider: provider,
		Message:  fmt.Sprintf("%s request failed: %v", provider, err),
		Err:      err,
	}
}

func missingCredential(provider ProviderName) *ProviderError {
	return &ProviderError{
		Kind:     KindMissingCredential,
		Provider: provider,
		Message: fmt.Sprintf("no API key available for %s: supply your own key or configure one on the server",
			provider),
	}
}
