package codec

import (
	"encoding/json"
	"net/http"

	"github.com/llmbridge/llm-openai-proxy/internal/jsonutil"
	"github.com/llmbridge/llm-openai-proxy/internal/stream"
	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// ResponsesEncoder encodes responses in OpenAI Responses API format. Request
// carries the inbound body so the envelope can echo its fields.
type ResponsesEncoder struct {
	Request *types.ResponsesRequest
	Clock   Clock
}

// WriteResult writes the non-streaming Responses envelope.
func (e *ResponsesEncoder) WriteResult(w http.ResponseWriter, statusCode int, res *stream.Result) {
	req := e.Request
	if req == nil {
		req = &types.ResponsesRequest{}
	}

	outputText := res.AssistantText
	if wantsJSONObject(req) {
		if v, ok := jsonutil.ExtractFirstJSON(outputText); ok {
			if b, err := json.Marshal(v); err == nil {
				outputText = string(b)
			}
		}
	}

	var output []types.ResponsesOutputItem
	message := types.ResponsesOutputItem{
		Type:   "message",
		ID:     NewMessageItemID(),
		Status: "completed",
		Role:   "assistant",
	}
	if outputText != "" {
		message.Content = []types.ResponsesOutputContent{
			{Type: "output_text", Text: outputText, Annotations: []any{}},
		}
	}
	output = append(output, message)
	for _, tc := range res.ToolCalls {
		output = append(output, types.ResponsesOutputItem{
			Type:      "function_call",
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	envelope := types.ResponsesResponse{
		ID:                NewResponseID(),
		Object:            "response",
		CreatedAt:         e.Clock.NowUnix(),
		Status:            "completed",
		Model:             res.Model,
		Output:            output,
		ParallelToolCalls: boolOrDefault(req.ParallelToolCalls, true),
		Reasoning:         types.ResponsesReasoning{},
		Store:             boolOrDefault(req.Store, true),
		Temperature:       floatOrDefault(req.Temperature, 1),
		Text:              textConfigOrDefault(req.Text),
		ToolChoice:        toolChoiceOrDefault(req.ToolChoice),
		Tools:             toolsOrEmpty(req.Tools),
		TopP:              floatOrDefault(req.TopP, 1),
		Truncation:        "disabled",
		Metadata:          metadataOrEmpty(req.Metadata),
		OutputText:        outputText,
	}
	if req.Instructions != "" {
		envelope.Instructions = req.Instructions
	}
	if req.MaxOutputTokens != nil {
		envelope.MaxOutputTokens = *req.MaxOutputTokens
	}
	if req.PreviousResponseID != "" {
		envelope.PreviousResponseID = req.PreviousResponseID
	}
	if mapped := types.ResponsesUsageFromChat(res.Usage); mapped != nil {
		envelope.Usage = mapped
	} else if res.Usage != nil {
		envelope.Usage = res.Usage
	}

	WriteJSON(w, statusCode, envelope)
}

// WriteError writes an OpenAI-format error.
func (e *ResponsesEncoder) WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteOpenAIError(w, statusCode, message)
}

func wantsJSONObject(req *types.ResponsesRequest) bool {
	return req.Text != nil && req.Text.Format != nil && req.Text.Format.Type == "json_object"
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func textConfigOrDefault(text *types.ResponsesTextConfig) *types.ResponsesTextConfig {
	if text == nil {
		return &types.ResponsesTextConfig{Format: &types.ResponsesTextFormat{Type: "text"}}
	}
	return text
}

func toolChoiceOrDefault(choice any) any {
	if choice == nil {
		return "auto"
	}
	return choice
}

func toolsOrEmpty(tools []types.ResponsesTool) []types.ResponsesTool {
	if tools == nil {
		return []types.ResponsesTool{}
	}
	return tools
}

func metadataOrEmpty(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
