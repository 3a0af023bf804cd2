package normalize

import (
	"encoding/json"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// FromAnthropic converts an inbound Anthropic Messages request into the
// canonical request. Content blocks expand into separate canonical messages
// in block order: text blocks keep their message's role, tool_use blocks
// become assistant tool calls, and tool_result blocks become tool messages.
func FromAnthropic(req *types.AnthropicMessagesRequest) (*types.CanonicalRequest, *Error) {
	if req.Model == "" {
		return nil, badRequest("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, badRequest("messages is required")
	}
	if req.MaxTokens <= 0 {
		return nil, badRequest("max_tokens is required")
	}

	var messages []types.ChatMessage
	if system, err := types.ParseSystemText(req.System); err != nil {
		return nil, badRequest(err.Error())
	} else if system != "" {
		messages = append(messages, types.ChatMessage{Role: "system", Content: system})
	}

	for i := range req.Messages {
		m := &req.Messages[i]
		expanded, err := anthropicMessageToChat(m)
		if err != nil {
			return nil, badRequest(err.Error())
		}
		messages = append(messages, expanded...)
	}

	canonical := &types.CanonicalRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   &req.MaxTokens,
		Tools:       anthropicToolsToChat(req.Tools),
		ToolChoice:  anthropicToolChoice(req.ToolChoice),
	}
	if len(req.StopSequences) > 0 {
		canonical.Stop = req.StopSequences
	}
	return canonical, nil
}

func anthropicMessageToChat(m *types.AnthropicMessage) ([]types.ChatMessage, error) {
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return []types.ChatMessage{{Role: m.Role, Content: s}}, nil
	}

	blocks, err := m.ParseContent()
	if err != nil {
		return nil, err
	}

	var out []types.ChatMessage
	for _, block := range blocks {
		switch block.Type {
		case "text":
			out = append(out, types.ChatMessage{Role: m.Role, Content: block.Text})
		case "tool_use":
			out = append(out, types.ChatMessage{
				Role:    "assistant",
				Content: "",
				ToolCalls: []types.ToolCall{{
					ID:       block.ID,
					Type:     "function",
					Function: types.FunctionCall{Name: block.Name, Arguments: toolInputJSON(block.Input)},
				}},
			})
		case "tool_result":
			out = append(out, types.ChatMessage{
				Role:       "tool",
				ToolCallID: block.ToolUseID,
				Content:    types.ParseToolResultText(block.Content),
			})
		}
	}
	return out, nil
}

// toolInputJSON renders a tool_use input as the opaque arguments string,
// unless it is already a string.
func toolInputJSON(input any) string {
	if s, ok := input.(string); ok {
		return s
	}
	if input == nil {
		return "{}"
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func anthropicToolsToChat(tools []types.AnthropicTool) []types.ChatTool {
	var out []types.ChatTool
	for _, t := range tools {
		out = append(out, types.ChatTool{
			Type: "function",
			Function: &types.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func anthropicToolChoice(choice *types.AnthropicToolChoice) any {
	if choice == nil {
		return nil
	}
	switch choice.Type {
	case "auto":
		return "auto"
	case "any":
		return "required"
	case "none":
		return "none"
	case "tool":
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": choice.Name},
		}
	}
	return nil
}
