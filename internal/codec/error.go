package codec

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteOpenAIError writes an OpenAI-format error response.
func WriteOpenAIError(w http.ResponseWriter, status int, message string) {
	slog.Error("request failed", "status", status, "error", message)
	WriteJSON(w, status, types.ErrorResponse{Error: types.ErrorDetail{Message: message}})
}

// WriteAnthropicError writes an Anthropic-format error response.
func WriteAnthropicError(w http.ResponseWriter, status int, errorType, message string) {
	if strings.TrimSpace(errorType) == "" {
		errorType = "api_error"
	}
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	slog.Error("request failed", "status", status, "error", message)
	WriteJSON(w, status, types.AnthropicErrorResponse{
		Type: "error",
		Error: types.AnthropicErrorBody{
			Type:    errorType,
			Message: message,
		},
	})
}

// FormatUpstreamError formats a short message for an upstream non-2xx reply.
func FormatUpstreamError(statusCode int, rawBody []byte) string {
	status := fmt.Sprintf("%d", statusCode)
	if text := http.StatusText(statusCode); text != "" {
		status = fmt.Sprintf("%d %s", statusCode, text)
	}
	if msg := ExtractUpstreamErrorMessage(rawBody); msg != "" {
		return fmt.Sprintf("Upstream returned HTTP %s: %s", status, msg)
	}
	if preview := compactBodyPreview(rawBody, 280); preview != "" {
		return fmt.Sprintf("Upstream returned HTTP %s with unparsed body: %s", status, preview)
	}
	return fmt.Sprintf("Upstream returned HTTP %s with empty error body", status)
}

// FormatUpstreamErrorWithHeaders includes request ID headers in the message.
func FormatUpstreamErrorWithHeaders(statusCode int, rawBody []byte, headers http.Header) string {
	msg := FormatUpstreamError(statusCode, rawBody)
	reqID := UpstreamRequestID(headers)
	if reqID == "" {
		return msg
	}
	return fmt.Sprintf("%s (request_id: %s)", msg, reqID)
}

// ExtractUpstreamErrorMessage pulls the human-readable message out of an
// upstream error body, tolerating the common envelope variants.
func ExtractUpstreamErrorMessage(rawBody []byte) string {
	trimmed := strings.TrimSpace(string(rawBody))
	if trimmed == "" || !gjson.Valid(trimmed) {
		return ""
	}
	root := gjson.Parse(trimmed)
	for _, path := range []string{
		"error.message",
		"error.error.message",
		"message",
		"detail",
		"error_description",
		"title",
		"reason",
		"error",
		"errors.0.message",
		"errors.0",
	} {
		if v := root.Get(path); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}

// UpstreamRequestID extracts a request ID from the common header variants.
func UpstreamRequestID(headers http.Header) string {
	if headers == nil {
		return ""
	}
	for _, key := range []string{"x-request-id", "x-openai-request-id", "x-oai-request-id", "openai-request-id", "request-id", "cf-ray"} {
		if v := strings.TrimSpace(headers.Get(key)); v != "" {
			return v
		}
	}
	return ""
}

func compactBodyPreview(rawBody []byte, maxLen int) string {
	trimmed := strings.TrimSpace(string(rawBody))
	if trimmed == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	if len(clean) <= maxLen {
		return clean
	}
	return clean[:maxLen] + "..."
}
