package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// jsonSpan matches the widest brace- or bracket-delimited region, leftmost
// first. Prose around a single document is stripped; nested objects stay
// intact.
var jsonSpan = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// Parsed is the outcome of ParseJSON. Exactly one of JSON or Raw is set.
type Parsed struct {
	// Value is the decoded document (map[string]any, []any, ...).
	Value any
	// JSON holds the bytes that decoded successfully.
	JSON []byte
	// Raw holds the trimmed model output when nothing could be decoded.
	Raw string
}

// OK reports whether the text contained a decodable JSON document.
func (p Parsed) OK() bool { return p.JSON != nil }

// IsObject reports whether the decoded value is a JSON object.
func (p Parsed) IsObject() bool {
	_, ok := p.Value.(map[string]any)
	return ok
}

// IsArray reports whether the decoded value is a JSON array.
func (p Parsed) IsArray() bool {
	_, ok := p.Value.([]any)
	return ok
}

// ParseJSON decodes model output, tolerating prose or code fences around the
// document. It never fails: unparseable text comes back with Raw set.
func ParseJSON(text string) Parsed {
	trimmed := strings.TrimSpace(text)

	if p, ok := decode([]byte(trimmed)); ok {
		return p
	}
	if m := jsonSpan.FindString(trimmed); m != "" {
		if p, ok := decode([]byte(m)); ok {
			return p
		}
	}
	return Parsed{Raw: trimmed}
}

func decode(data []byte) (Parsed, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Parsed{}, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Parsed{}, false
	}
	return Parsed{Value: v, JSON: data}, true
}
