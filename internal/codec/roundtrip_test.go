package codec

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/llmbridge/llm-openai-proxy/internal/normalize"
	"github.com/llmbridge/llm-openai-proxy/internal/stream"
	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// An assistant turn fed back in as request history must survive
// normalization and the buffered builder with its text and tool calls
// intact (ids, names, raw argument strings).
func TestAnthropicRoundTripPreservesAssistantTurn(t *testing.T) {
	body := `{"model":"m","max_tokens":10,"messages":[
		{"role":"assistant","content":[
			{"type":"text","text":"let me check"},
			{"type":"tool_use","id":"tu_9","name":"search","input":{"q":"golang"}}
		]}
	]}`
	var req types.AnthropicMessagesRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("bad test body: %v", err)
	}
	canonical, nerr := normalize.FromAnthropic(&req)
	if nerr != nil {
		t.Fatalf("normalize failed: %v", nerr)
	}

	// Reassemble the assistant turn from the canonical messages.
	res := &stream.Result{Model: "m", FinishReason: "tool_calls"}
	for _, m := range canonical.Messages {
		if m.Role != "assistant" {
			continue
		}
		if s, _ := m.Content.(string); s != "" {
			res.AssistantText += s
		}
		res.ToolCalls = append(res.ToolCalls, m.ToolCalls...)
	}

	rec := httptest.NewRecorder()
	(&AnthropicEncoder{Clock: testClock}).WriteResult(rec, 200, res)

	var out types.AnthropicMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad output: %v", err)
	}
	if len(out.Content) != 2 {
		t.Fatalf("expected text and tool_use blocks, got %+v", out.Content)
	}
	if out.Content[0].Text != "let me check" {
		t.Errorf("text lost: %+v", out.Content[0])
	}
	tool := out.Content[1]
	if tool.ID != "tu_9" || tool.Name != "search" {
		t.Errorf("tool identity lost: %+v", tool)
	}
	input, _ := tool.Input.(map[string]any)
	if input == nil || input["q"] != "golang" {
		t.Errorf("tool input lost: %+v", tool.Input)
	}
}

// The same property for Chat Completions: tool calls pass through the
// canonical form and the buffered builder byte-identical.
func TestChatRoundTripPreservesAssistantTurn(t *testing.T) {
	body := `{"model":"m","messages":[
		{"role":"assistant","content":"on it","tool_calls":[
			{"id":"call_7","type":"function","function":{"name":"f","arguments":"{\"raw\": 1 }"}}
		]}
	]}`
	var req types.ChatCompletionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("bad test body: %v", err)
	}
	canonical, nerr := normalize.FromChat(&req)
	if nerr != nil {
		t.Fatalf("normalize failed: %v", nerr)
	}

	msg := canonical.Messages[0]
	res := &stream.Result{
		Model:         "m",
		AssistantText: msg.Content.(string),
		ToolCalls:     msg.ToolCalls,
		FinishReason:  "tool_calls",
	}

	rec := httptest.NewRecorder()
	(&ChatEncoder{Clock: testClock}).WriteResult(rec, 200, res)

	var out types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad output: %v", err)
	}
	outMsg := out.Choices[0].Message
	if outMsg.Content != "on it" {
		t.Errorf("text lost: %+v", outMsg)
	}
	if len(outMsg.ToolCalls) != 1 {
		t.Fatalf("tool calls lost: %+v", outMsg)
	}
	tc := outMsg.ToolCalls[0]
	if tc.ID != "call_7" || tc.Function.Name != "f" || tc.Function.Arguments != `{"raw": 1 }` {
		t.Errorf("tool call mutated: %+v", tc)
	}
}
