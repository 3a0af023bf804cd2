package types

// CanonicalRequest is the unified internal representation of a chat request
// after decoding. Every inbound dialect normalizes into this shape, and it
// marshals directly as the upstream Chat Completions payload.
type CanonicalRequest struct {
	Model             string          `json:"model"`
	Messages          []ChatMessage   `json:"messages"`
	Stream            bool            `json:"stream"`
	Temperature       *float64        `json:"temperature,omitempty"`
	TopP              *float64        `json:"top_p,omitempty"`
	MaxTokens         *int            `json:"max_tokens,omitempty"`
	ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`
	Stop              any             `json:"stop,omitempty"`
	Tools             []ChatTool      `json:"tools,omitempty"`
	ToolChoice        any             `json:"tool_choice,omitempty"`
	ResponseFormat    *ResponseFormat `json:"response_format,omitempty"`
}

// WantsJSONObject reports whether the caller asked for a json_object response.
func (r *CanonicalRequest) WantsJSONObject() bool {
	return r.ResponseFormat != nil && r.ResponseFormat.Type == "json_object"
}

// ChatMessage represents a chat message. After normalization Content is
// always a plain string; before normalization it may be an array of parts.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ChatTool represents a tool in the OpenAI format.
type ChatTool struct {
	Type     string       `json:"type"`
	Function *FunctionDef `json:"function,omitempty"`
}

// FunctionDef defines a function tool.
type FunctionDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// ToolCall represents a completed tool call in a message.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and the raw JSON arguments string.
// Arguments is opaque: it is accumulated verbatim across stream deltas and
// never re-parsed unless dialect conversion demands it.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ResponseFormat selects plain text, json_object, or json_schema output.
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *JSONSchemaSpec `json:"json_schema,omitempty"`
}

// JSONSchemaSpec carries a named JSON schema for structured output.
type JSONSchemaSpec struct {
	Name   string `json:"name"`
	Strict *bool  `json:"strict,omitempty"`
	Schema any    `json:"schema,omitempty"`
}
