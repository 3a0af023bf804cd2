package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/llmbridge/llm-openai-proxy/internal/stream"
	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// AnthropicEncoder encodes responses in Anthropic Messages format.
type AnthropicEncoder struct {
	Clock Clock
}

// WriteResult writes the non-streaming Messages envelope.
func (e *AnthropicEncoder) WriteResult(w http.ResponseWriter, statusCode int, res *stream.Result) {
	var content []types.AnthropicContentOut
	if res.AssistantText != "" {
		content = append(content, types.AnthropicContentOut{
			Type: "text",
			Text: res.AssistantText,
		})
	}
	for _, tc := range res.ToolCalls {
		content = append(content, types.AnthropicContentOut{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: parseToolInput(tc.Function.Arguments),
		})
	}
	if content == nil {
		content = []types.AnthropicContentOut{}
	}

	response := types.AnthropicMessageResponse{
		ID:      NewAnthropicMessageID(),
		Type:    "message",
		Role:    "assistant",
		Content: content,
		Model:   res.Model,
		StopReason: types.StringPtr(MapStopReason(res.FinishReason)),
		Usage: types.AnthropicUsage{
			InputTokens:  types.UsageTokens(res.Usage, "prompt_tokens"),
			OutputTokens: types.UsageTokens(res.Usage, "completion_tokens"),
		},
	}
	WriteJSON(w, statusCode, response)
}

// WriteError writes an Anthropic-format error.
func (e *AnthropicEncoder) WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteAnthropicError(w, statusCode, "api_error", message)
}

// parseToolInput decodes an arguments string into the tool_use input value,
// keeping the raw string when it does not parse.
func parseToolInput(arguments string) any {
	if arguments == "" {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal([]byte(arguments), &v); err != nil {
		return arguments
	}
	return v
}

// toolBlockState tracks one open tool-use content block, keyed by the
// upstream tool-call index.
type toolBlockState struct {
	ID   string
	Name string
	Args string
}

// AnthropicStreamProjector transforms a live upstream Chat Completions SSE
// stream into the Anthropic Messages event stream. Content block 0 is the
// text block; the tool call at upstream index i uses block index i+1. Every
// content_block_start is matched by exactly one content_block_stop before
// message_delta and message_stop go out.
type AnthropicStreamProjector struct {
	Model string
	Clock Clock

	w       http.ResponseWriter
	flusher http.Flusher

	msgID            string
	sentMessageStart bool
	textBlockOpen    bool
	textBlockClosed  bool
	toolBlocks       map[int]*toolBlockState
	closedToolBlocks map[int]bool
	usage            any
	writeFailed      bool
}

// NewAnthropicStreamProjector creates a projector writing to w. Returns nil
// when w cannot flush, since live projection needs per-event delivery.
func NewAnthropicStreamProjector(w http.ResponseWriter, model string) *AnthropicStreamProjector {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	return &AnthropicStreamProjector{
		Model:            model,
		w:                w,
		flusher:          flusher,
		msgID:            NewAnthropicMessageID(),
		toolBlocks:       map[int]*toolBlockState{},
		closedToolBlocks: map[int]bool{},
	}
}

// Run consumes the upstream stream and emits Anthropic events until the
// upstream finishes or the client goes away.
func (p *AnthropicStreamProjector) Run(reader *stream.Reader) {
	for {
		evt, err := reader.Next()
		if err == io.EOF || p.writeFailed {
			break
		}
		if err != nil {
			// Transport failure mid-stream: end with no further events.
			return
		}
		if p.project(evt.Chunk) {
			return
		}
	}
	if p.sentMessageStart {
		p.finish("end_turn")
	}
}

// project handles one upstream chunk. Returns true when the message was
// finalized and the stream is done.
func (p *AnthropicStreamProjector) project(chunk types.UpstreamChunk) bool {
	model := chunk.Model
	if model == "" {
		model = p.Model
	}
	p.startIfNeeded(model)

	if chunk.Usage != nil {
		p.usage = chunk.Usage
	}
	if len(chunk.Choices) == 0 {
		return false
	}
	choice := chunk.Choices[0]

	if delta := choice.Delta; delta != nil {
		p.projectText(delta)
		for _, tc := range delta.ToolCalls {
			p.projectToolCall(tc)
		}
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		p.finish(MapStopReason(*choice.FinishReason))
		return true
	}
	return false
}

// projectText opens the text block on the first content or reasoning delta,
// empty or not, and forwards non-empty text. Reasoning text is emitted as
// ordinary text deltas; downstream does not distinguish it.
func (p *AnthropicStreamProjector) projectText(delta *types.ChunkDelta) {
	var pieces []string
	seen := false
	for _, s := range []*string{delta.Content, delta.Text, delta.ReasoningContent} {
		if s == nil {
			continue
		}
		seen = true
		if *s != "" {
			pieces = append(pieces, *s)
		}
	}
	if !seen {
		return
	}

	if !p.textBlockOpen && !p.textBlockClosed {
		p.writeEvent("content_block_start", map[string]any{
			"type":          "content_block_start",
			"index":         0,
			"content_block": map[string]any{"type": "text", "text": ""},
		})
		p.textBlockOpen = true
	}
	if p.textBlockClosed {
		// Text after the block closed cannot reopen index 0 without
		// breaking block ordering; it is dropped.
		return
	}
	for _, text := range pieces {
		p.writeEvent("content_block_delta", map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": text},
		})
	}
}

func (p *AnthropicStreamProjector) projectToolCall(tc types.ToolCallDelta) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	if idx < 0 {
		return
	}

	block, known := p.toolBlocks[idx]
	if !known {
		p.closeTextBlock()
		name := ""
		if tc.Function != nil {
			name = tc.Function.Name
		}
		block = &toolBlockState{ID: tc.ID, Name: name}
		p.toolBlocks[idx] = block
		p.writeEvent("content_block_start", map[string]any{
			"type":  "content_block_start",
			"index": idx + 1,
			"content_block": map[string]any{
				"type":  "tool_use",
				"id":    block.ID,
				"name":  block.Name,
				"input": map[string]any{},
			},
		})
	}

	if tc.Function == nil || tc.Function.Arguments == "" || p.closedToolBlocks[idx] {
		return
	}
	fragment := tc.Function.Arguments
	if len(block.Args)+len(fragment) > stream.MaxToolArgBufSize {
		slog.Warn("tool argument buffer limit exceeded, dropping fragment",
			"index", idx, "buf_len", len(block.Args), "delta_len", len(fragment))
		return
	}
	block.Args += fragment
	p.writeEvent("content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": idx + 1,
		"delta": map[string]any{"type": "input_json_delta", "partial_json": fragment},
	})
}

func (p *AnthropicStreamProjector) startIfNeeded(model string) {
	if p.sentMessageStart {
		return
	}
	p.sentMessageStart = true
	p.writeEvent("message_start", map[string]any{
		"type": "message_start",
		"message": types.AnthropicMessageResponse{
			ID:      p.msgID,
			Type:    "message",
			Role:    "assistant",
			Content: []types.AnthropicContentOut{},
			Model:   model,
			Usage:   types.AnthropicUsage{},
		},
	})
}

func (p *AnthropicStreamProjector) closeTextBlock() {
	if !p.textBlockOpen || p.textBlockClosed {
		return
	}
	p.writeEvent("content_block_stop", map[string]any{
		"type":  "content_block_stop",
		"index": 0,
	})
	p.textBlockClosed = true
}

// finish closes every open block in ascending index order and emits the
// terminal message_delta and message_stop events.
func (p *AnthropicStreamProjector) finish(stopReason string) {
	p.closeTextBlock()

	indices := make([]int, 0, len(p.toolBlocks))
	for idx := range p.toolBlocks {
		if !p.closedToolBlocks[idx] {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)
	for _, idx := range indices {
		p.writeEvent("content_block_stop", map[string]any{
			"type":  "content_block_stop",
			"index": idx + 1,
		})
		p.closedToolBlocks[idx] = true
	}

	p.writeEvent("message_delta", map[string]any{
		"type": "message_delta",
		"delta": map[string]any{
			"stop_reason":   stopReason,
			"stop_sequence": nil,
		},
		"usage": types.AnthropicUsage{
			InputTokens:  types.UsageTokens(p.usage, "prompt_tokens"),
			OutputTokens: types.UsageTokens(p.usage, "completion_tokens"),
		},
	})
	p.writeEvent("message_stop", map[string]any{"type": "message_stop"})
}

func (p *AnthropicStreamProjector) writeEvent(event string, payload any) {
	if p.writeFailed {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal SSE event", "event", event, "error", err)
		return
	}
	if _, err := fmt.Fprintf(p.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		slog.Debug("client disconnected during SSE write", "error", err)
		p.writeFailed = true
		return
	}
	p.flusher.Flush()
}
