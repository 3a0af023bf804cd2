package stream

import "github.com/llmbridge/llm-openai-proxy/internal/types"

// Result holds a fully-assembled upstream response: the same shape comes out
// of the SSE collector and the buffered parser.
type Result struct {
	AssistantText string
	ReasoningText string
	ToolCalls     []types.ToolCall
	Model         string
	Usage         any
	FinishReason  string
}
