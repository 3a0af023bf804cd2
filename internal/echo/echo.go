// Package echo answers requests locally when no upstream is configured,
// returning the request content as the assistant's reply.
package echo

import (
	"bytes"
	"encoding/json"

	"github.com/llmbridge/llm-openai-proxy/internal/stream"
)

// EstimateTokens gives the advisory chars/4 token estimate, never below 1.
func EstimateTokens(content string) int {
	n := (len(content) + 3) / 4
	if n < 1 {
		return 1
	}
	return n
}

// ContentFromRaw renders a raw JSON value as echo content: JSON strings
// unwrap to their value, everything else echoes as compact JSON.
func ContentFromRaw(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ContentFromValue renders any JSON-encodable value as echo content.
func ContentFromValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Build assembles an echo result with advisory token usage.
func Build(content, model string) *stream.Result {
	tokens := EstimateTokens(content)
	return &stream.Result{
		AssistantText: content,
		Model:         model,
		FinishReason:  "stop",
		Usage: map[string]any{
			"prompt_tokens":     tokens,
			"completion_tokens": tokens,
			"total_tokens":      2 * tokens,
		},
	}
}
