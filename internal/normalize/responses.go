package normalize

import (
	"encoding/json"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// FromResponses converts an inbound Responses API request into the canonical
// request. The input may be a string (single user message), an array of
// mixed items, or any other JSON value (stringified as a user message).
func FromResponses(req *types.ResponsesRequest) (*types.CanonicalRequest, *Error) {
	if req.Model == "" {
		return nil, badRequest("model is required")
	}

	messages := inputToMessages(req.Input)
	if len(messages) == 0 {
		return nil, badRequest("input is required")
	}
	if req.Instructions != "" {
		messages = append([]types.ChatMessage{{Role: "system", Content: req.Instructions}}, messages...)
	}

	return &types.CanonicalRequest{
		Model:             req.Model,
		Messages:          messages,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		MaxTokens:         req.MaxOutputTokens,
		ParallelToolCalls: req.ParallelToolCalls,
		Tools:             responsesToolsToChat(req.Tools),
		ToolChoice:        normalizeToolChoice(req.ToolChoice),
		ResponseFormat:    responseFormatFromText(req.Text),
	}, nil
}

func inputToMessages(raw json.RawMessage) []types.ChatMessage {
	if len(raw) == 0 {
		return nil
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil
	}
	switch v := input.(type) {
	case nil:
		return nil
	case string:
		return []types.ChatMessage{{Role: "user", Content: v}}
	case []any:
		var messages []types.ChatMessage
		for _, item := range v {
			if msg, ok := inputItemToMessage(item); ok {
				messages = append(messages, msg)
			}
		}
		return messages
	default:
		return []types.ChatMessage{{Role: "user", Content: stringifyAny(v)}}
	}
}

// inputItemToMessage dispatches one input array item by its type field.
func inputItemToMessage(item any) (types.ChatMessage, bool) {
	obj, _ := item.(map[string]any)
	if obj == nil {
		return types.ChatMessage{Role: "user", Content: stringifyAny(item)}, true
	}

	itemType, _ := obj["type"].(string)
	switch itemType {
	case "function_call":
		callID, _ := obj["call_id"].(string)
		name, _ := obj["name"].(string)
		args, _ := obj["arguments"].(string)
		return types.ChatMessage{
			Role:    "assistant",
			Content: "",
			ToolCalls: []types.ToolCall{{
				ID:       callID,
				Type:     "function",
				Function: types.FunctionCall{Name: name, Arguments: args},
			}},
		}, true

	case "function_call_output":
		callID, _ := obj["call_id"].(string)
		return types.ChatMessage{
			Role:       "tool",
			ToolCallID: callID,
			Content:    stringifyAny(obj["output"]),
		}, true
	}

	role, hasRole := obj["role"].(string)
	if itemType == "message" || hasRole {
		if role == "" {
			role = "user"
		}
		return types.ChatMessage{Role: role, Content: itemContentText(obj["content"])}, true
	}

	content, hasContent := obj["content"]
	if !hasContent || content == nil {
		content = obj
	}
	return types.ChatMessage{Role: "user", Content: stringifyAny(content)}, true
}

func itemContentText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		return flattenParts(c, "input_text", "text", "output_text")
	default:
		return stringifyAny(c)
	}
}

// responsesToolsToChat converts Responses-format tools (flat name/parameters)
// into Chat Completions function tools. Non-function tool types (web search,
// computer use, MCP, …) are dropped.
func responsesToolsToChat(tools []types.ResponsesTool) []types.ChatTool {
	var out []types.ChatTool
	for _, t := range tools {
		if t.Type != "function" && t.Type != "" {
			continue
		}
		fn := t.Function
		if fn == nil {
			if t.Name == "" {
				continue
			}
			fn = &types.FunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			}
		}
		out = append(out, types.ChatTool{Type: "function", Function: fn})
	}
	return out
}

func responseFormatFromText(text *types.ResponsesTextConfig) *types.ResponseFormat {
	if text == nil || text.Format == nil {
		return nil
	}
	switch text.Format.Type {
	case "json_object":
		return &types.ResponseFormat{Type: "json_object"}
	case "json_schema":
		name := text.Format.Name
		if name == "" {
			name = "schema"
		}
		strict := text.Format.Strict
		if strict == nil {
			strict = types.BoolPtr(true)
		}
		return &types.ResponseFormat{
			Type: "json_schema",
			JSONSchema: &types.JSONSchemaSpec{
				Name:   name,
				Strict: strict,
				Schema: text.Format.Schema,
			},
		}
	}
	return nil
}
