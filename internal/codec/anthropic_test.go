package codec

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/llmbridge/llm-openai-proxy/internal/stream"
	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

var testClock = Clock(func() time.Time { return time.Unix(1700000000, 0) })

// sseEvent is one parsed downstream SSE frame.
type sseEvent struct {
	Event string
	Data  map[string]any
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	for _, line := range strings.Split(body, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			current = sseEvent{Event: strings.TrimPrefix(line, "event: ")}
		case strings.HasPrefix(line, "data: "):
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				continue
			}
			if err := json.Unmarshal([]byte(payload), &current.Data); err != nil {
				t.Fatalf("bad event data %q: %v", payload, err)
			}
			events = append(events, current)
			current = sseEvent{}
		}
	}
	return events
}

func runProjector(t *testing.T, model, upstream string) []sseEvent {
	t.Helper()
	rec := httptest.NewRecorder()
	p := NewAnthropicStreamProjector(rec, model)
	if p == nil {
		t.Fatal("recorder should support flushing")
	}
	p.Run(stream.NewReader(strings.NewReader(upstream)))
	return parseSSE(t, rec.Body.String())
}

func eventNames(events []sseEvent) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Event)
	}
	return names
}

func TestProjectorTextThenTool(t *testing.T) {
	upstream := `data: {"choices":[{"delta":{"content":"hi"}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"t1","function":{"name":"f"}}]}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"x\""}}]}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":":1}"}}]}}]}

data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]

`
	events := runProjector(t, "m", upstream)

	want := []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_stop",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}
	got := eventNames(events)
	if len(got) != len(want) {
		t.Fatalf("event count: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %s want %s (%v)", i, got[i], want[i], got)
		}
	}

	if idx := events[1].Data["index"]; idx != float64(0) {
		t.Errorf("text block index: %v", idx)
	}
	textDelta := events[2].Data["delta"].(map[string]any)
	if textDelta["type"] != "text_delta" || textDelta["text"] != "hi" {
		t.Errorf("unexpected text delta: %v", textDelta)
	}

	toolStart := events[4].Data
	if toolStart["index"] != float64(1) {
		t.Errorf("tool block index: %v", toolStart["index"])
	}
	block := toolStart["content_block"].(map[string]any)
	if block["type"] != "tool_use" || block["id"] != "t1" || block["name"] != "f" {
		t.Errorf("unexpected tool block: %v", block)
	}

	frag1 := events[5].Data["delta"].(map[string]any)
	frag2 := events[6].Data["delta"].(map[string]any)
	if frag1["partial_json"] != `{"x"` || frag2["partial_json"] != `:1}` {
		t.Errorf("unexpected fragments: %v %v", frag1, frag2)
	}

	msgDelta := events[8].Data["delta"].(map[string]any)
	if msgDelta["stop_reason"] != "tool_use" {
		t.Errorf("unexpected stop reason: %v", msgDelta["stop_reason"])
	}
	if _, hasSeq := msgDelta["stop_sequence"]; !hasSeq || msgDelta["stop_sequence"] != nil {
		t.Errorf("expected null stop_sequence: %v", msgDelta)
	}
}

func TestProjectorEOFWithoutFinish(t *testing.T) {
	upstream := `data: {"choices":[{"delta":{"content":"partial"}}]}
`
	events := runProjector(t, "m", upstream)
	got := eventNames(events)
	want := []string{"message_start", "content_block_start", "content_block_delta", "content_block_stop", "message_delta", "message_stop"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
	msgDelta := events[4].Data["delta"].(map[string]any)
	if msgDelta["stop_reason"] != "end_turn" {
		t.Errorf("unexpected stop reason: %v", msgDelta["stop_reason"])
	}
}

func TestProjectorEmptyContentOpensBlock(t *testing.T) {
	upstream := `data: {"choices":[{"delta":{"content":""}}]}

data: {"choices":[{"delta":{},"finish_reason":"stop"}]}

data: [DONE]
`
	events := runProjector(t, "m", upstream)
	got := eventNames(events)
	want := []string{"message_start", "content_block_start", "content_block_stop", "message_delta", "message_stop"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestProjectorEmptyUpstream(t *testing.T) {
	events := runProjector(t, "m", "data: [DONE]\n")
	if len(events) != 0 {
		t.Errorf("expected no events for empty upstream, got %v", eventNames(events))
	}
}

func TestProjectorBalancedBlocks(t *testing.T) {
	upstream := `data: {"model":"up","choices":[{"delta":{"content":"a"}}]}

data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"t0","function":{"name":"f0","arguments":"{}"}},{"index":1,"id":"t1","function":{"name":"f1"}}]}}]}

data: {"choices":[{"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]
`
	events := runProjector(t, "m", upstream)

	open := map[float64]bool{}
	closed := map[float64]bool{}
	sawMessageDelta := false
	for _, e := range events {
		idx, _ := e.Data["index"].(float64)
		switch e.Event {
		case "content_block_start":
			if open[idx] || closed[idx] {
				t.Fatalf("block %v started twice", idx)
			}
			open[idx] = true
		case "content_block_delta":
			if !open[idx] || closed[idx] {
				t.Fatalf("delta outside open block %v", idx)
			}
		case "content_block_stop":
			if !open[idx] || closed[idx] {
				t.Fatalf("unbalanced stop for block %v", idx)
			}
			closed[idx] = true
		case "message_delta":
			sawMessageDelta = true
			for idx := range open {
				if !closed[idx] {
					t.Fatalf("block %v still open at message_delta", idx)
				}
			}
		}
	}
	if !sawMessageDelta {
		t.Fatal("missing message_delta")
	}
	if !closed[0] || !closed[1] || !closed[2] {
		t.Errorf("expected blocks 0,1,2 closed: %v", closed)
	}
}

func TestProjectorMessageStartModel(t *testing.T) {
	upstream := `data: {"model":"upstream-model","choices":[{"delta":{"content":"x"},"finish_reason":null}]}

data: {"choices":[{"delta":{},"finish_reason":"stop"}]}

data: [DONE]
`
	events := runProjector(t, "fallback", upstream)
	msg := events[0].Data["message"].(map[string]any)
	if msg["model"] != "upstream-model" {
		t.Errorf("unexpected model: %v", msg["model"])
	}
	if msg["id"] == "" {
		t.Error("expected a message id")
	}
}

func TestAnthropicWriteResult(t *testing.T) {
	enc := &AnthropicEncoder{Clock: testClock}
	rec := httptest.NewRecorder()
	enc.WriteResult(rec, 200, &stream.Result{
		AssistantText: "hello",
		Model:         "m",
		FinishReason:  "tool_calls",
		ToolCalls: []types.ToolCall{
			{ID: "t1", Type: "function", Function: types.FunctionCall{Name: "f", Arguments: `{"x":1}`}},
			{ID: "t2", Type: "function", Function: types.FunctionCall{Name: "g", Arguments: `not json`}},
		},
		Usage: map[string]any{"prompt_tokens": float64(3), "completion_tokens": float64(9)},
	})

	var resp types.AnthropicMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "msg_") {
		t.Errorf("unexpected id: %s", resp.ID)
	}
	if len(resp.Content) != 3 {
		t.Fatalf("expected three blocks, got %d", len(resp.Content))
	}
	if resp.Content[0].Type != "text" || resp.Content[0].Text != "hello" {
		t.Errorf("unexpected text block: %+v", resp.Content[0])
	}
	input, _ := resp.Content[1].Input.(map[string]any)
	if input == nil || input["x"] != float64(1) {
		t.Errorf("expected parsed input: %+v", resp.Content[1])
	}
	if raw, _ := resp.Content[2].Input.(string); raw != "not json" {
		t.Errorf("expected raw string input fallback: %+v", resp.Content[2])
	}
	if resp.StopReason == nil || *resp.StopReason != "tool_use" {
		t.Errorf("unexpected stop reason: %v", resp.StopReason)
	}
	if resp.Usage.InputTokens != 3 || resp.Usage.OutputTokens != 9 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestMapStopReason(t *testing.T) {
	cases := map[string]string{
		"length":     "max_tokens",
		"tool_calls": "tool_use",
		"stop":       "end_turn",
		"":           "end_turn",
		"other":      "end_turn",
	}
	for finish, want := range cases {
		if got := MapStopReason(finish); got != want {
			t.Errorf("MapStopReason(%q) = %q, want %q", finish, got, want)
		}
	}
}
