package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderName identifies one of the interchangeable text-generation backends.
type ProviderName string

const (
	ProviderGemini    ProviderName = "gemini"
	ProviderOpenAI    ProviderName = "openai"
	ProviderGroq      ProviderName = "groq"
	ProviderAnthropic ProviderName = "anthropic"
)

// Providers lists every provider the router knows, in display order.
var Providers = []ProviderName{ProviderGemini, ProviderOpenAI, ProviderGroq, ProviderAnthropic}

// ParseProvider normalises a provider name and reports whether it is known.
func ParseProvider(s string) (ProviderName, error) {
	p := ProviderName(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown LLM provider: %q", s)
}

// Backend is the capability every provider implements. A backend is
// stateless with respect to credentials: the key arrives with each call so
// the router can retry with a different one.
type Backend interface {
	Name() ProviderName
	Generate(ctx context.Context, call Call) (string, error)
}

// Call is a single, fully resolved request to a backend.
type Call struct {
	Model       string
	APIKey      string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Request is what callers hand to the Router.
type Request struct {
	Provider    ProviderName
	APIKey      string // caller-supplied credential, optional
	Model       string // model override, optional
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}
