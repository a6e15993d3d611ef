package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Router dispatches generation requests to provider backends, resolving
// which credential to use and retrying once with the process credential
// when the caller's credential is rejected.
type Router struct {
	cfg      Config
	backends map[ProviderName]Backend
}

// NewRouter creates a router over the given backends.
func NewRouter(cfg Config, backends ...Backend) *Router {
	m := make(map[ProviderName]Backend, len(backends))
	for _, b := range backends {
		m[b.Name()] = b
	}
	return &Router{cfg: cfg, backends: m}
}

// NewDefaultRouter creates a router wired to the real provider SDKs.
func NewDefaultRouter(cfg Config) *Router {
	return NewRouter(cfg,
		NewGeminiBackend(cfg.Provider(ProviderGemini).BaseURL),
		NewOpenAIBackend(cfg.Provider(ProviderOpenAI).BaseURL),
		NewGroqBackend(cfg.Provider(ProviderGroq).BaseURL),
		NewAnthropicBackend(cfg.Provider(ProviderAnthropic).BaseURL),
	)
}

// ProviderInfo describes a routable provider without exposing credentials.
type ProviderInfo struct {
	Name         ProviderName `json:"name"`
	DefaultModel string       `json:"default_model"`
	ServerKey    bool         `json:"server_key_configured"`
}

// Providers lists the providers this router can dispatch to.
func (r *Router) Providers() []ProviderInfo {
	var out []ProviderInfo
	for _, p := range Providers {
		if _, ok := r.backends[p]; !ok {
			continue
		}
		out = append(out, ProviderInfo{
			Name:         p,
			DefaultModel: r.cfg.Provider(p).Model,
			ServerKey:    r.cfg.HasServerKey(p),
		})
	}
	return out
}

// Supports reports whether a backend is registered for p.
func (r *Router) Supports(p ProviderName) bool {
	_, ok := r.backends[p]
	return ok
}

// Generate returns the raw text produced by the requested provider. Every
// failure is returned as a *ProviderError.
func (r *Router) Generate(ctx context.Context, req Request) (string, error) {
	backend, ok := r.backends[req.Provider]
	if !ok {
		return "", &ProviderError{
			Kind:     KindUnknown,
			Provider: req.Provider,
			Message:  fmt.Sprintf("unsupported LLM provider %q", req.Provider),
		}
	}

	pc := r.cfg.Provider(req.Provider)
	call := Call{
		Model:       req.Model,
		System:      req.System,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if call.Model == "" {
		call.Model = pc.Model
	}

	callerKey, serverKey := req.APIKey, pc.APIKey
	if callerKey == "" && serverKey == "" {
		return "", missingCredential(req.Provider)
	}

	if callerKey == "" {
		text, err := r.attempt(ctx, backend, call, serverKey, "server")
		if err != nil {
			return "", Classify(req.Provider, err)
		}
		return text, nil
	}

	text, err := r.attempt(ctx, backend, call, callerKey, "caller")
	if err == nil {
		return text, nil
	}
	perr := Classify(req.Provider, err)
	perr.UsedCallerKey = true
	if perr.Kind != KindCredential || serverKey == "" || serverKey == callerKey {
		return "", perr
	}

	slog.Warn("caller API key rejected, retrying with server key",
		"provider", req.Provider, "caller_key", Fingerprint(callerKey))
	text, err = r.attempt(ctx, backend, call, serverKey, "server")
	if err != nil {
		perr = Classify(req.Provider, err)
		perr.UsedCallerKey = true
		perr.FallbackTried = true
		return "", perr
	}
	return text, nil
}

func (r *Router) attempt(ctx context.Context, b Backend, call Call, key, source string) (string, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	call.APIKey = key

	start := time.Now()
	text, err := b.Generate(ctx, call)
	latency := time.Since(start)
	if err != nil {
		slog.Info("LLM call failed",
			"provider", b.Name(), "model", call.Model, "key_source", source,
			"key", Fingerprint(key), "latency", latency, "error", err)
		return "", err
	}
	slog.Debug("LLM call succeeded",
		"provider", b.Name(), "model", call.Model, "key_source", source,
		"key", Fingerprint(key), "latency", latency, "chars", len(text))
	return text, nil
}
