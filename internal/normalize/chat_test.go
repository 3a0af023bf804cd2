package normalize

import (
	"encoding/json"
	"testing"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

func chatReq(t *testing.T, body string) *types.ChatCompletionRequest {
	t.Helper()
	var req types.ChatCompletionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("bad test body: %v", err)
	}
	return &req
}

func TestFromChatPassThrough(t *testing.T) {
	body := `{"model":"m","messages":[{"role":"user","content":"hi"}],"temperature":0.5}`
	canonical, err := FromChat(chatReq(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canonical.Model != "m" || len(canonical.Messages) != 1 {
		t.Fatalf("unexpected canonical: %+v", canonical)
	}
	if canonical.Messages[0].Content != "hi" {
		t.Errorf("unexpected content: %v", canonical.Messages[0].Content)
	}
	if canonical.Temperature == nil || *canonical.Temperature != 0.5 {
		t.Errorf("expected temperature carried over: %v", canonical.Temperature)
	}
}

func TestFromChatFlattensContentParts(t *testing.T) {
	body := `{"model":"m","messages":[{"role":"user","content":[
		{"type":"text","text":"part one"},
		{"type":"image_url","image_url":{"url":"http://x"}},
		{"type":"text","text":" part two"}
	]}]}`
	canonical, err := FromChat(chatReq(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canonical.Messages[0].Content != "part one part two" {
		t.Errorf("unexpected flattened content: %v", canonical.Messages[0].Content)
	}
}

func TestFromChatDropsNonFunctionTools(t *testing.T) {
	body := `{"model":"m","messages":[{"role":"user","content":"x"}],"tools":[
		{"type":"function","function":{"name":"keep"}},
		{"type":"web_search"},
		{"type":"computer_use"}
	]}`
	canonical, err := FromChat(chatReq(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(canonical.Tools) != 1 || canonical.Tools[0].Function.Name != "keep" {
		t.Errorf("unexpected tools: %+v", canonical.Tools)
	}
}

func TestFromChatToolChoiceShorthand(t *testing.T) {
	body := `{"model":"m","messages":[{"role":"user","content":"x"}],"tool_choice":{"type":"function","name":"f"}}`
	canonical, err := FromChat(chatReq(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	choice, _ := canonical.ToolChoice.(map[string]any)
	if choice == nil {
		t.Fatalf("unexpected tool choice: %v", canonical.ToolChoice)
	}
	fn, _ := choice["function"].(map[string]any)
	if fn == nil || fn["name"] != "f" {
		t.Errorf("expected nested function shape: %v", choice)
	}
}

func TestFromChatToolChoiceStringKept(t *testing.T) {
	body := `{"model":"m","messages":[{"role":"user","content":"x"}],"tool_choice":"required"}`
	canonical, err := FromChat(chatReq(t, body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canonical.ToolChoice != "required" {
		t.Errorf("unexpected tool choice: %v", canonical.ToolChoice)
	}
}

func TestFromChatValidation(t *testing.T) {
	if _, err := FromChat(chatReq(t, `{"messages":[{"role":"user","content":"x"}]}`)); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := FromChat(chatReq(t, `{"model":"m"}`)); err == nil {
		t.Error("expected error for missing messages")
	}
}
