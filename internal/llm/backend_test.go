package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIBackend(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"[{\"id\":1}]"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	b := NewOpenAIBackend(srv.URL + "/v1")
	got, err := b.Generate(context.Background(), Call{
		Model: "gpt-test", APIKey: "sk-test", System: "sys", Prompt: "hello", MaxTokens: 100,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `[{"id":1}]` {
		t.Errorf("text = %q", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-test" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if msgs, _ := gotBody["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages = %v, want system and user", gotBody["messages"])
	}
}

func TestOpenAIBackendUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIBackend(srv.URL+"/v1").Generate(context.Background(), Call{Model: "m", APIKey: "bad", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if k := Classify(ProviderOpenAI, err).Kind; k != KindCredential {
		t.Errorf("Kind = %s, want %s", k, KindCredential)
	}
}

func TestGroqBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer gsk-good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"hello from groq"}}]}`)
	}))
	defer srv.Close()

	b := NewGroqBackend(srv.URL)

	got, err := b.Generate(context.Background(), Call{Model: "llama", APIKey: "gsk-good", Prompt: "p", MaxTokens: 10, Temperature: 0.2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hello from groq" {
		t.Errorf("text = %q", got)
	}

	_, err = b.Generate(context.Background(), Call{Model: "llama", APIKey: "gsk-bad", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for bad key")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should carry the status code", err)
	}
	if k := Classify(ProviderGroq, err).Kind; k != KindCredential {
		t.Errorf("Kind = %s, want %s", k, KindCredential)
	}
}

func TestGroqBackendNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := NewGroqBackend(srv.URL).Generate(context.Background(), Call{Model: "m", APIKey: "k", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if k := Classify(ProviderGroq, err).Kind; k != KindUnknown {
		t.Errorf("Kind = %s, want %s", k, KindUnknown)
	}
}

func TestAnthropicBackend(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",`+
			`"content":[{"type":"text","text":"{\"scores\":{}}"}],"stop_reason":"end_turn",`+
			`"usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	got, err := NewAnthropicBackend(srv.URL).Generate(context.Background(), Call{
		Model: "claude-test", APIKey: "sk-ant", System: "sys", Prompt: "p",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"scores":{}}` {
		t.Errorf("text = %q", got)
	}
	if gotKey != "sk-ant" {
		t.Errorf("x-api-key = %q", gotKey)
	}
}

func TestAnthropicBackendUnauthorized(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	_, err := NewAnthropicBackend(srv.URL).Generate(context.Background(), Call{Model: "m", APIKey: "bad", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if k := Classify(ProviderAnthropic, err).Kind; k != KindCredential {
		t.Errorf("Kind = %s, want %s", k, KindCredential)
	}
	if calls != 1 {
		t.Errorf("server saw %d requests, want 1 (SDK retries must be off)", calls)
	}
}

func TestGeminiBackend(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("X-Goog-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"gemini says hi"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	got, err := NewGeminiBackend(srv.URL).Generate(context.Background(), Call{
		Model: "gemini-test", APIKey: "AIza-test", Prompt: "p", MaxTokens: 50, Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "gemini says hi" {
		t.Errorf("text = %q", got)
	}
	if gotKey != "AIza-test" {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
}
