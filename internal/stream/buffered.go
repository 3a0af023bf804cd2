package stream

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// ErrNotChatCompletion is returned when a buffered upstream body does not
// have the Chat Completions shape.
var ErrNotChatCompletion = errors.New("body is not a chat completion object")

// ParseBuffered extracts a Result from a single non-SSE JSON upstream
// response with the Chat Completions shape.
func ParseBuffered(body []byte, requestedModel string) (*Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrNotChatCompletion
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, ErrNotChatCompletion
	}
	message := root.Get("choices.0.message")
	if !message.Exists() {
		return nil, ErrNotChatCompletion
	}

	res := &Result{Model: requestedModel}
	if model := root.Get("model"); model.Type == gjson.String && model.Str != "" {
		res.Model = model.Str
	}
	if usage := root.Get("usage"); usage.IsObject() {
		var parsed any
		if err := json.Unmarshal([]byte(usage.Raw), &parsed); err == nil {
			res.Usage = parsed
		}
	}
	if content := message.Get("content"); content.Type == gjson.String {
		res.AssistantText = content.Str
	}
	if reasoning := message.Get("reasoning_content"); reasoning.Type == gjson.String {
		res.ReasoningText = reasoning.Str
	}
	if toolCalls := message.Get("tool_calls"); toolCalls.IsArray() {
		var calls []types.ToolCall
		if err := json.Unmarshal([]byte(toolCalls.Raw), &calls); err == nil {
			res.ToolCalls = calls
		}
	}
	if finish := root.Get("choices.0.finish_reason"); finish.Type == gjson.String {
		res.FinishReason = finish.Str
	}
	return res, nil
}
