package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicBackend calls the Anthropic Messages API.
type AnthropicBackend struct {
	baseURL string
}

// NewAnthropicBackend creates an Anthropic backend. An empty baseURL uses
// the SDK default endpoint.
func NewAnthropicBackend(baseURL string) *AnthropicBackend {
	return &AnthropicBackend{baseURL: baseURL}
}

func (b *AnthropicBackend) Name() ProviderName { return ProviderAnthropic }

// Generate sends one user message and returns the first text block. SDK
// retries are disabled so the router alone decides when to retry.
func (b *AnthropicBackend) Generate(ctx context.Context, call Call) (string, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(call.APIKey),
		option.WithMaxRetries(0),
	}
	if b.baseURL != "" {
		opts = append(opts, option.WithBaseURL(b.baseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := call.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(call.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(call.Prompt)),
		},
	}
	if call.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: call.System}}
	}
	if call.Temperature > 0 {
		params.Temperature = anthropic.Float(call.Temperature)
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic returned no text content")
}
