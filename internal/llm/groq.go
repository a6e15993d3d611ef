package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqBackend calls Groq's OpenAI-compatible REST endpoint directly.
type GroqBackend struct {
	client *resty.Client
}

// NewGroqBackend creates a Groq backend rooted at baseURL.
func NewGroqBackend(baseURL string) *GroqBackend {
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	return &GroqBackend{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json"),
	}
}

func (b *GroqBackend) Name() ProviderName { return ProviderGroq }

// Generate posts a chat completion and extracts the first choice's content.
func (b *GroqBackend) Generate(ctx context.Context, call Call) (string, error) {
	messages := make([]map[string]string, 0, 2)
	if call.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": call.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": call.Prompt})

	body := map[string]any{
		"model":    call.Model,
		"messages": messages,
	}
	if call.MaxTokens > 0 {
		body["max_tokens"] = call.MaxTokens
	}
	if call.Temperature > 0 {
		body["temperature"] = call.Temperature
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(call.APIKey).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}

	raw := resp.String()
	if resp.IsError() {
		msg := gjson.Get(raw, "error.message").String()
		if msg == "" {
			msg = raw
		}
		return "", fmt.Errorf("groq: status %d: %s", resp.StatusCode(), msg)
	}

	content := gjson.Get(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("groq returned no choices")
	}
	return content.String(), nil
}
