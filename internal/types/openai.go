package types

// --- Request types ---

// ChatCompletionRequest represents an inbound OpenAI chat completion request.
type ChatCompletionRequest struct {
	Model             string          `json:"model"`
	Messages          []ChatMessage   `json:"messages,omitempty"`
	Stream            bool            `json:"stream,omitempty"`
	StreamOptions     *StreamOptions  `json:"stream_options,omitempty"`
	Temperature       *float64        `json:"temperature,omitempty"`
	TopP              *float64        `json:"top_p,omitempty"`
	MaxTokens         *int            `json:"max_tokens,omitempty"`
	Stop              any             `json:"stop,omitempty"`
	Tools             []ChatTool      `json:"tools,omitempty"`
	ToolChoice        any             `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`
	ResponseFormat    *ResponseFormat `json:"response_format,omitempty"`
}

// StreamOptions holds stream-specific options.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// --- Response types ---

// ChatCompletionResponse represents a non-streaming chat completion response.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   any          `json:"usage"`
}

// ChatChoice is a single choice in a non-streaming response.
type ChatChoice struct {
	Index        int             `json:"index"`
	Message      ChatResponseMsg `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ChatResponseMsg is the message in a non-streaming response choice.
type ChatResponseMsg struct {
	Role             string     `json:"role"`
	Content          string     `json:"content"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
}

// --- Upstream streaming types ---

// UpstreamChunk is a single parsed SSE payload from the upstream
// Chat Completions stream. Providers vary: a chunk may carry deltas, or a
// complete message object, or only model/usage bookkeeping.
type UpstreamChunk struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Usage   any              `json:"usage"`
	Choices []UpstreamChoice `json:"choices"`
}

// UpstreamChoice is a single choice entry in an upstream chunk.
type UpstreamChoice struct {
	Delta        *ChunkDelta   `json:"delta"`
	Message      *ChunkMessage `json:"message"`
	FinishReason *string       `json:"finish_reason"`
}

// ChunkDelta holds the incremental content of a streaming chunk. Content,
// Text, and ReasoningContent are pointers because presence matters: an empty
// string still opens a text block downstream.
type ChunkDelta struct {
	Role             string          `json:"role,omitempty"`
	Content          *string         `json:"content,omitempty"`
	Text             *string         `json:"text,omitempty"`
	ReasoningContent *string         `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ChunkMessage is a full (non-delta) message object some upstreams send in
// place of deltas.
type ChunkMessage struct {
	Role      string     `json:"role,omitempty"`
	Content   *string    `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCallDelta is a partial tool call from a streaming chunk. Index selects
// the accumulation slot; absent index means slot 0.
type ToolCallDelta struct {
	Index    *int               `json:"index,omitempty"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function *FunctionCallDelta `json:"function,omitempty"`
}

// FunctionCallDelta carries a name and/or an arguments fragment.
type FunctionCallDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// --- Models and errors ---

// ModelList is the response for GET /v1/models.
type ModelList struct {
	Object string        `json:"object"`
	Data   []ModelObject `json:"data"`
}

// ModelObject represents a single model entry.
type ModelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ErrorResponse wraps an OpenAI-format API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds the error message.
type ErrorDetail struct {
	Message string `json:"message"`
}
