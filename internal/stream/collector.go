package stream

import (
	"io"
	"log/slog"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// MaxToolArgBufSize is the upper bound (in bytes) for accumulated
// function-call argument fragments per tool call.
const MaxToolArgBufSize = 1 << 20 // 1 MB

// Collect reads an upstream Chat Completions SSE stream and assembles text,
// reasoning text, tool calls, usage, and finish reason into a Result.
//
// Model is taken from the last upstream event that carried one, falling back
// to requestedModel. A stream that ends without [DONE] still yields whatever
// was accumulated.
func Collect(body io.Reader, requestedModel string) *Result {
	res := &Result{Model: requestedModel}
	var slots []*types.ToolCall

	reader := NewReader(body)
	for {
		evt, err := reader.Next()
		if err != nil {
			break
		}
		chunk := evt.Chunk

		if chunk.Model != "" {
			res.Model = chunk.Model
		}
		if chunk.Usage != nil {
			res.Usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			res.FinishReason = *choice.FinishReason
		}

		// Some upstreams send a complete message object instead of deltas.
		if msg := choice.Message; msg != nil && msg.Content != nil {
			res.AssistantText = *msg.Content
			if msg.ToolCalls != nil {
				res.ToolCalls = msg.ToolCalls
				return res
			}
			continue
		}

		delta := choice.Delta
		if delta == nil {
			continue
		}
		if delta.Content != nil {
			res.AssistantText += *delta.Content
		}
		if delta.Text != nil {
			res.AssistantText += *delta.Text
		}
		if delta.ReasoningContent != nil {
			res.ReasoningText += *delta.ReasoningContent
		}
		for _, tc := range delta.ToolCalls {
			slots = accumulateToolCall(slots, tc)
		}
	}

	for _, slot := range slots {
		if slot != nil {
			res.ToolCalls = append(res.ToolCalls, *slot)
		}
	}
	return res
}

// accumulateToolCall merges one streaming partial into its slot. The slot is
// selected by the upstream index (default 0) and initialized on first sight.
func accumulateToolCall(slots []*types.ToolCall, tc types.ToolCallDelta) []*types.ToolCall {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	if idx < 0 {
		return slots
	}
	for len(slots) <= idx {
		slots = append(slots, nil)
	}
	if slots[idx] == nil {
		callType := tc.Type
		if callType == "" {
			callType = "function"
		}
		name := ""
		if tc.Function != nil {
			name = tc.Function.Name
		}
		slots[idx] = &types.ToolCall{
			ID:       tc.ID,
			Type:     callType,
			Function: types.FunctionCall{Name: name},
		}
	}
	if tc.Function == nil || tc.Function.Arguments == "" {
		return slots
	}
	slot := slots[idx]
	if len(slot.Function.Arguments)+len(tc.Function.Arguments) > MaxToolArgBufSize {
		slog.Warn("tool argument buffer limit exceeded, dropping fragment",
			"index", idx, "buf_len", len(slot.Function.Arguments), "delta_len", len(tc.Function.Arguments))
		return slots
	}
	slot.Function.Arguments += tc.Function.Arguments
	return slots
}
