package llm

import (
	"testing"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantOK    bool
		wantArray bool
	}{
		{"object", `{"a": 1}`, true, false},
		{"array", `[{"id": 1}]`, true, true},
		{"padded", "  \n{\"a\": 1}\n  ", true, false},
		{"code fence", "```json\n[{\"id\": 1, \"question\": \"q\"}]\n```", true, true},
		{"prose around", "Sure! Here you go: {\"scores\": {\"technical\": 7}} Hope it helps.", true, false},
		{"nested", `noise {"a": {"b": [1, 2]}} noise`, true, false},
		{"plain text", "I cannot answer that.", false, false},
		{"empty", "", false, false},
		{"whitespace", "   \n\t", false, false},
		{"broken braces", "{ not json }", false, false},
		{"unbalanced", `{"a": [1, 2}`, false, false},
		{"two objects", `{"a":1} and {"b":2}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseJSON(tt.in)
			if got.OK() != tt.wantOK {
				t.Fatalf("OK() = %v, want %v (raw=%q)", got.OK(), tt.wantOK, got.Raw)
			}
			if tt.wantOK {
				if got.IsArray() != tt.wantArray {
					t.Errorf("IsArray() = %v, want %v", got.IsArray(), tt.wantArray)
				}
				if got.Raw != "" {
					t.Errorf("Raw should be empty on success, got %q", got.Raw)
				}
				return
			}
			if got.Value != nil || got.JSON != nil {
				t.Errorf("failed parse should carry no value, got %+v", got)
			}
		})
	}
}

func TestParseJSONRawIsTrimmed(t *testing.T) {
	got := ParseJSON("  nothing here \n")
	if got.Raw != "nothing here" {
		t.Errorf("Raw = %q, want %q", got.Raw, "nothing here")
	}
}

func TestParseJSONNeverPanics(t *testing.T) {
	inputs := []string{
		"{", "}", "[", "]", "{]", "[}", "{{{{", "\x00\xff", "[[[[[[[[[[",
		`{"a":"\u12"}`, "null", "123", `"str"`, "{\"a\":1}}}",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("ParseJSON(%q) panicked: %v", in, r)
				}
			}()
			_ = ParseJSON(in)
		}()
	}
}
