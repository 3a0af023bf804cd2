// Package normalize converts the three inbound request dialects into the
// canonical Chat Completions request.
package normalize

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is a request validation failure, surfaced to the caller as an HTTP
// error in the appropriate dialect.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

func badRequest(message string) *Error {
	return &Error{StatusCode: http.StatusBadRequest, Message: message}
}

// stringifyAny renders an arbitrary JSON-decoded value as message text:
// strings pass through, scalars print plainly, everything else is
// JSON-encoded.
func stringifyAny(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool, json.Number:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// flattenParts concatenates the text of parts whose type is in accepted,
// in order, with no separator. Non-map entries are skipped.
func flattenParts(parts []any, accepted ...string) string {
	ok := make(map[string]bool, len(accepted))
	for _, t := range accepted {
		ok[t] = true
	}
	var out string
	for _, p := range parts {
		part, _ := p.(map[string]any)
		if part == nil {
			continue
		}
		partType, _ := part["type"].(string)
		if !ok[partType] {
			continue
		}
		if text, isStr := part["text"].(string); isStr {
			out += text
		}
	}
	return out
}

// normalizeToolChoice rewrites the shorthand {type:"function", name:"X"}
// into the nested {type:"function", function:{name:"X"}} form. String
// choices and the already-nested form pass through.
func normalizeToolChoice(choice any) any {
	m, _ := choice.(map[string]any)
	if m == nil {
		return choice
	}
	if kind, _ := m["type"].(string); kind != "function" {
		return choice
	}
	if _, nested := m["function"].(map[string]any); nested {
		return choice
	}
	name, _ := m["name"].(string)
	if name == "" {
		return choice
	}
	return map[string]any{
		"type":     "function",
		"function": map[string]any{"name": name},
	}
}
