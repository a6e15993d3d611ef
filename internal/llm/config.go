package llm

import "time"

// Config holds the process-wide provider configuration. It is passed to
// NewRouter explicitly; nothing in this package reads the environment.
type Config struct {
	Providers map[ProviderName]ProviderConfig

	// Timeout bounds each outbound attempt. Default: 60s.
	Timeout time.Duration
}

// ProviderConfig holds one provider's server-side settings.
type ProviderConfig struct {
	APIKey  string // process-configured credential, optional
	Model   string // default model
	BaseURL string // optional endpoint override
}

// DefaultConfig returns a Config with default models and no credentials.
func DefaultConfig() Config {
	return Config{
		Providers: map[ProviderName]ProviderConfig{
			ProviderGemini:    {Model: "gemini-2.0-flash"},
			ProviderOpenAI:    {Model: "gpt-4o-mini"},
			ProviderGroq:      {Model: "llama-3.1-8b-instant", BaseURL: defaultGroqBaseURL},
			ProviderAnthropic: {Model: "claude-haiku-4-5"},
		},
		Timeout: 60 * time.Second,
	}
}

// Provider returns the settings for p, or the zero value if unset.
func (c Config) Provider(p ProviderName) ProviderConfig {
	return c.Providers[p]
}

// HasServerKey reports whether a process credential is configured for p.
func (c Config) HasServerKey(p ProviderName) bool {
	return c.Providers[p].APIKey != ""
}
