package types

import "encoding/json"

// ResponsesRequest is the inbound request body for POST /v1/responses.
// Input stays raw because it may be a string, an array of mixed items, or
// any other JSON value.
type ResponsesRequest struct {
	Model              string               `json:"model"`
	Input              json.RawMessage      `json:"input,omitempty"`
	Instructions       string               `json:"instructions,omitempty"`
	Stream             bool                 `json:"stream,omitempty"`
	Temperature        *float64             `json:"temperature,omitempty"`
	TopP               *float64             `json:"top_p,omitempty"`
	MaxOutputTokens    *int                 `json:"max_output_tokens,omitempty"`
	ParallelToolCalls  *bool                `json:"parallel_tool_calls,omitempty"`
	PreviousResponseID string               `json:"previous_response_id,omitempty"`
	Store              *bool                `json:"store,omitempty"`
	Text               *ResponsesTextConfig `json:"text,omitempty"`
	ToolChoice         any                  `json:"tool_choice,omitempty"`
	Tools              []ResponsesTool      `json:"tools,omitempty"`
	Metadata           map[string]any       `json:"metadata,omitempty"`
}

// ResponsesTextConfig selects the output text format.
type ResponsesTextConfig struct {
	Format *ResponsesTextFormat `json:"format,omitempty"`
}

// ResponsesTextFormat is the format selector inside text config.
type ResponsesTextFormat struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Strict *bool  `json:"strict,omitempty"`
	Schema any    `json:"schema,omitempty"`
}

// ResponsesTool represents a tool in the Responses API format. The flat
// fields are the native Responses shape; Function tolerates clients that
// send the nested Chat Completions shape on this route.
type ResponsesTool struct {
	Type        string       `json:"type"`
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Strict      *bool        `json:"strict,omitempty"`
	Parameters  any          `json:"parameters,omitempty"`
	Function    *FunctionDef `json:"function,omitempty"`
}

// ResponsesResponse is the non-streaming envelope for POST /v1/responses.
// Nullable fields are typed any so absent values serialize as null.
type ResponsesResponse struct {
	ID                 string                `json:"id"`
	Object             string                `json:"object"`
	CreatedAt          int64                 `json:"created_at"`
	Status             string                `json:"status"`
	Error              any                   `json:"error"`
	IncompleteDetails  any                   `json:"incomplete_details"`
	Instructions       any                   `json:"instructions"`
	MaxOutputTokens    any                   `json:"max_output_tokens"`
	Model              string                `json:"model"`
	Output             []ResponsesOutputItem `json:"output"`
	ParallelToolCalls  bool                  `json:"parallel_tool_calls"`
	PreviousResponseID any                   `json:"previous_response_id"`
	Reasoning          ResponsesReasoning    `json:"reasoning"`
	Store              bool                  `json:"store"`
	Temperature        float64               `json:"temperature"`
	Text               *ResponsesTextConfig  `json:"text"`
	ToolChoice         any                   `json:"tool_choice"`
	Tools              []ResponsesTool       `json:"tools"`
	TopP               float64               `json:"top_p"`
	Truncation         string                `json:"truncation"`
	Usage              any                   `json:"usage"`
	User               any                   `json:"user"`
	Metadata           map[string]any        `json:"metadata"`
	OutputText         string                `json:"output_text"`
}

// ResponsesReasoning mirrors the reasoning summary block of the envelope.
type ResponsesReasoning struct {
	Effort  any `json:"effort"`
	Summary any `json:"summary"`
}

// ResponsesOutputItem is one entry of the output array. A flat discriminated
// union: Type determines which fields are relevant.
type ResponsesOutputItem struct {
	Type      string                   `json:"type"`
	ID        string                   `json:"id,omitempty"`
	Status    string                   `json:"status,omitempty"`
	Role      string                   `json:"role,omitempty"`
	Content   []ResponsesOutputContent `json:"content,omitempty"`
	CallID    string                   `json:"call_id,omitempty"`
	Name      string                   `json:"name,omitempty"`
	Arguments string                   `json:"arguments,omitempty"`
}

// ResponsesOutputContent is a content part of a message output item.
type ResponsesOutputContent struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Annotations []any  `json:"annotations"`
}

// ResponsesUsage is the usage block in Responses dialect.
type ResponsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
