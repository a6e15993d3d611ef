package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend calls an OpenAI-compatible chat completions API.
type OpenAIBackend struct {
	baseURL string
}

// NewOpenAIBackend creates an OpenAI backend. An empty baseURL uses the
// SDK default endpoint.
func NewOpenAIBackend(baseURL string) *OpenAIBackend {
	return &OpenAIBackend{baseURL: baseURL}
}

func (b *OpenAIBackend) Name() ProviderName { return ProviderOpenAI }

// Generate sends a single-turn chat completion and returns the reply text.
func (b *OpenAIBackend) Generate(ctx context.Context, call Call) (string, error) {
	config := openai.DefaultConfig(call.APIKey)
	if b.baseURL != "" {
		config.BaseURL = b.baseURL
	}
	api := openai.NewClientWithConfig(config)

	resp, err := api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       call.Model,
		Messages:    buildOpenAIMessages(call),
		MaxTokens:   call.MaxTokens,
		Temperature: float32(call.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildOpenAIMessages(call Call) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if call.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: call.System,
		})
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: call.Prompt,
	})
}
