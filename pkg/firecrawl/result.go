package firecrawl

import (
	"bytes"
	"encoding/json"
)

// Result is a normalized search result record.
type Result map[string]any

// URL returns the record's url, or "" when absent or not a string.
func (r Result) URL() string {
	s, _ := r["url"].(string)
	return s
}

// Title returns the top-level title, falling back to metadata.title.
func (r Result) Title() string {
	if s, ok := r["title"].(string); ok && s != "" {
		return s
	}
	if meta, ok := r["metadata"].(map[string]any); ok {
		if s, ok := meta["title"].(string); ok {
			return s
		}
	}
	return ""
}

// Normalize coerces a raw search record into a Result.
//
// A JSON object is returned as-is. A two-element array whose second element is
// an object yields that object. Every other shape is rejected.
func Normalize(raw json.RawMessage) (Result, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}

	switch raw[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, false
		}
		return Result(m), true
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
			return nil, false
		}
		second := bytes.TrimSpace(pair[1])
		if len(second) == 0 || second[0] != '{' {
			return nil, false
		}
		var m map[string]any
		if err := json.Unmarshal(second, &m); err != nil {
			return nil, false
		}
		return Result(m), true
	default:
		return nil, false
	}
}
