package types

import "encoding/json"

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}

// IntFromAny converts a JSON-decoded numeric value to int.
// Handles float64, int, and json.Number (all common from json.Unmarshal).
func IntFromAny(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

// UsageTokens extracts a named token count from a JSON-decoded usage value.
// Returns 0 when the usage is not an object or the key is missing.
func UsageTokens(usage any, key string) int {
	m, _ := usage.(map[string]any)
	if m == nil {
		return 0
	}
	return IntFromAny(m[key])
}

// ResponsesUsageFromChat converts a Chat Completions usage object into the
// Responses dialect shape. Returns nil when the usage is not a JSON object;
// missing token keys count as zero.
func ResponsesUsageFromChat(usage any) *ResponsesUsage {
	m, _ := usage.(map[string]any)
	if m == nil {
		return nil
	}
	pt := IntFromAny(m["prompt_tokens"])
	ct := IntFromAny(m["completion_tokens"])
	tt := IntFromAny(m["total_tokens"])
	if tt == 0 {
		tt = pt + ct
	}
	return &ResponsesUsage{
		InputTokens:  pt,
		OutputTokens: ct,
		TotalTokens:  tt,
	}
}
