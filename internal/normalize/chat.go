package normalize

import (
	"strings"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// FromChat converts an inbound Chat Completions request into the canonical
// request. Message content arrays are flattened to plain text, tools that
// are not function tools are dropped, and shorthand tool_choice objects are
// rewritten to the nested form.
func FromChat(req *types.ChatCompletionRequest) (*types.CanonicalRequest, *Error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, badRequest("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, badRequest("messages is required")
	}

	messages := make([]types.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := m
		msg.Content = flattenChatContent(m.Content)
		messages = append(messages, msg)
	}

	return &types.CanonicalRequest{
		Model:             req.Model,
		Messages:          messages,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		MaxTokens:         req.MaxTokens,
		ParallelToolCalls: req.ParallelToolCalls,
		Stop:              req.Stop,
		Tools:             FilterFunctionTools(req.Tools),
		ToolChoice:        normalizeToolChoice(req.ToolChoice),
		ResponseFormat:    req.ResponseFormat,
	}, nil
}

// FilterFunctionTools drops every tool whose type is not "function".
func FilterFunctionTools(tools []types.ChatTool) []types.ChatTool {
	var out []types.ChatTool
	for _, t := range tools {
		if t.Type == "function" && t.Function != nil {
			out = append(out, t)
		}
	}
	return out
}

func flattenChatContent(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		return flattenParts(c, "text")
	default:
		return stringifyAny(c)
	}
}
