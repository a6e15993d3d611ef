package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiBackend calls the Google Gemini API.
type GeminiBackend struct {
	baseURL string
}

// NewGeminiBackend creates a Gemini backend. An empty baseURL uses the SDK
// default endpoint.
func NewGeminiBackend(baseURL string) *GeminiBackend {
	return &GeminiBackend{baseURL: baseURL}
}

func (b *GeminiBackend) Name() ProviderName { return ProviderGemini }

// Generate runs a single GenerateContent request with the call's key.
func (b *GeminiBackend) Generate(ctx context.Context, call Call) (string, error) {
	cc := &genai.ClientConfig{
		APIKey:  call.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if b.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: b.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, call.Model, genai.Text(call.Prompt), geminiConfig(call))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return result.Text(), nil
}

func geminiConfig(call Call) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(call.MaxTokens),
	}
	if call.Temperature > 0 {
		temp := float32(call.Temperature)
		config.Temperature = &temp
	}
	if call.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: call.System}},
		}
	}
	return config
}
