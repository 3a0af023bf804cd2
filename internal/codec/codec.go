// Package codec builds dialect-specific responses from assembled upstream
// results and projects live upstream streams into downstream SSE.
package codec

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/llmbridge/llm-openai-proxy/internal/stream"
)

// Clock supplies the current time to response builders. Injectable for tests.
type Clock func() time.Time

// NowUnix returns the current Unix time, defaulting to the wall clock.
func (c Clock) NowUnix() int64 {
	if c == nil {
		return time.Now().Unix()
	}
	return c().Unix()
}

// Encoder writes a fully-assembled result and errors in one API dialect.
type Encoder interface {
	WriteResult(w http.ResponseWriter, statusCode int, res *stream.Result)
	WriteError(w http.ResponseWriter, statusCode int, message string)
}

// NewChatCompletionID mints a local chat completion identifier.
func NewChatCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}

// NewResponseID mints a local Responses API identifier.
func NewResponseID() string {
	return "resp-" + uuid.NewString()
}

// NewMessageItemID mints a Responses API output message item identifier.
func NewMessageItemID() string {
	return "msg-" + uuid.NewString()
}

// NewAnthropicMessageID mints an Anthropic message identifier.
func NewAnthropicMessageID() string {
	return "msg_" + uuid.NewString()
}

// WriteSSEHeaders prepares a downstream SSE response. X-Accel-Buffering
// keeps reverse proxies from buffering events.
func WriteSSEHeaders(w http.ResponseWriter, statusCode int) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(statusCode)
}

// MapStopReason converts a Chat Completions finish reason into the Anthropic
// stop reason vocabulary.
func MapStopReason(finishReason string) string {
	switch finishReason {
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	default:
		return "end_turn"
	}
}
