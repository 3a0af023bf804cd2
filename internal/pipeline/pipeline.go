// Package pipeline wires normalization, the upstream client, stream
// assembly, and the response builders into the three translate operations.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/llmbridge/llm-openai-proxy/internal/codec"
	"github.com/llmbridge/llm-openai-proxy/internal/config"
	"github.com/llmbridge/llm-openai-proxy/internal/echo"
	"github.com/llmbridge/llm-openai-proxy/internal/normalize"
	"github.com/llmbridge/llm-openai-proxy/internal/stream"
	"github.com/llmbridge/llm-openai-proxy/internal/types"
	"github.com/llmbridge/llm-openai-proxy/internal/upstream"
)

// maxErrorBodyBytes bounds how much of an upstream error body is read.
const maxErrorBodyBytes = 1 << 20

// Pipeline executes translated requests. Upstream is nil in echo mode.
type Pipeline struct {
	Config   *config.ServerConfig
	Upstream *upstream.Client
	Clock    codec.Clock
}

// New creates a pipeline from the configuration.
func New(cfg *config.ServerConfig) *Pipeline {
	p := &Pipeline{Config: cfg}
	if !cfg.EchoMode() {
		p.Upstream = upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamKey, cfg.Verbose)
	}
	return p
}

// EchoMode reports whether requests are answered locally.
func (p *Pipeline) EchoMode() bool {
	return p.Upstream == nil
}

// --- Chat Completions ---

// TranslateChatCompletion serves POST /v1/chat/completions.
func (p *Pipeline) TranslateChatCompletion(ctx context.Context, w http.ResponseWriter, req *types.ChatCompletionRequest) {
	enc := &codec.ChatEncoder{Clock: p.Clock}
	canonical, nerr := normalize.FromChat(req)
	if nerr != nil {
		enc.WriteError(w, nerr.StatusCode, nerr.Message)
		return
	}

	if p.EchoMode() {
		res := echo.Build(echo.ContentFromValue(req.Messages), canonical.Model)
		if req.Stream {
			codec.WriteSSEHeaders(w, http.StatusOK)
			codec.PassthroughChatStream(w, synthesizeSSE(res), codec.NewChatCompletionID())
			return
		}
		enc.WriteResult(w, http.StatusOK, res)
		return
	}

	body, rerr := p.openUpstream(ctx, canonical)
	if rerr != nil {
		enc.WriteError(w, rerr.StatusCode, rerr.Message)
		return
	}
	defer body.Close()

	if req.Stream {
		codec.WriteSSEHeaders(w, http.StatusOK)
		codec.PassthroughChatStream(w, body, codec.NewChatCompletionID())
		return
	}
	enc.WriteResult(w, http.StatusOK, stream.Collect(body, canonical.Model))
}

// --- Responses ---

// TranslateResponses serves POST /v1/responses (non-streaming output).
func (p *Pipeline) TranslateResponses(ctx context.Context, w http.ResponseWriter, req *types.ResponsesRequest) {
	enc := &codec.ResponsesEncoder{Request: req, Clock: p.Clock}
	canonical, nerr := normalize.FromResponses(req)
	if nerr != nil {
		enc.WriteError(w, nerr.StatusCode, nerr.Message)
		return
	}

	if p.EchoMode() {
		res := echo.Build(echo.ContentFromRaw(req.Input), canonical.Model)
		enc.WriteResult(w, http.StatusOK, res)
		return
	}

	body, rerr := p.openUpstream(ctx, canonical)
	if rerr != nil {
		enc.WriteError(w, rerr.StatusCode, rerr.Message)
		return
	}
	defer body.Close()
	enc.WriteResult(w, http.StatusOK, stream.Collect(body, canonical.Model))
}

// --- Anthropic Messages ---

// TranslateAnthropic serves POST /v1/messages.
func (p *Pipeline) TranslateAnthropic(ctx context.Context, w http.ResponseWriter, req *types.AnthropicMessagesRequest) {
	enc := &codec.AnthropicEncoder{Clock: p.Clock}
	canonical, nerr := normalize.FromAnthropic(req)
	if nerr != nil {
		codec.WriteAnthropicError(w, nerr.StatusCode, "invalid_request_error", nerr.Message)
		return
	}

	if p.EchoMode() {
		res := echo.Build(echo.ContentFromValue(req.Messages), canonical.Model)
		if req.Stream {
			p.projectAnthropic(w, synthesizeSSE(res), canonical.Model)
			return
		}
		enc.WriteResult(w, http.StatusOK, res)
		return
	}

	body, rerr := p.openUpstream(ctx, canonical)
	if rerr != nil {
		enc.WriteError(w, rerr.StatusCode, rerr.Message)
		return
	}
	defer body.Close()

	if req.Stream {
		p.projectAnthropic(w, body, canonical.Model)
		return
	}
	enc.WriteResult(w, http.StatusOK, stream.Collect(body, canonical.Model))
}

func (p *Pipeline) projectAnthropic(w http.ResponseWriter, body io.Reader, model string) {
	codec.WriteSSEHeaders(w, http.StatusOK)
	projector := codec.NewAnthropicStreamProjector(w, model)
	if projector == nil {
		return
	}
	projector.Run(stream.NewReader(body))
}

// --- Models ---

// ListModels serves GET /v1/models: proxied to the upstream when one is
// configured, otherwise the static configured list.
func (p *Pipeline) ListModels(ctx context.Context, w http.ResponseWriter) {
	if !p.EchoMode() {
		resp, err := p.Upstream.Models(ctx)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.StatusCode)
			io.Copy(w, resp.Body)
			return
		}
		if err == nil {
			resp.Body.Close()
		}
		// Upstream unavailable: fall back to the configured list.
	}
	p.writeStaticModels(w)
}

func (p *Pipeline) writeStaticModels(w http.ResponseWriter) {
	now := p.Clock.NowUnix()
	list := types.ModelList{Object: "list", Data: []types.ModelObject{}}
	for _, id := range p.Config.Models {
		list.Data = append(list.Data, types.ModelObject{
			ID:      id,
			Object:  "model",
			Created: now,
			OwnedBy: p.Config.ServiceName,
		})
	}
	codec.WriteJSON(w, http.StatusOK, list)
}

// CountTokens serves POST /v1/messages/count_tokens with the advisory
// chars/4 estimate over the serialized request content.
func (p *Pipeline) CountTokens(w http.ResponseWriter, req *types.AnthropicCountTokensRequest) {
	if req.Model == "" {
		codec.WriteAnthropicError(w, http.StatusBadRequest, "invalid_request_error", "model is required")
		return
	}
	if len(req.Messages) == 0 {
		codec.WriteAnthropicError(w, http.StatusBadRequest, "invalid_request_error", "messages is required")
		return
	}
	var parts []string
	if system, err := types.ParseSystemText(req.System); err == nil && system != "" {
		parts = append(parts, system)
	}
	parts = append(parts, echo.ContentFromValue(req.Messages))
	if len(req.Tools) > 0 {
		parts = append(parts, echo.ContentFromValue(req.Tools))
	}
	codec.WriteJSON(w, http.StatusOK, types.AnthropicCountTokensResponse{
		InputTokens: echo.EstimateTokens(strings.Join(parts, "\n")),
	})
}

// --- Upstream plumbing ---

// openUpstream POSTs the canonical request (stream forced on) and returns a
// reader of Chat Completions SSE. A buffered JSON upstream reply is accepted
// and re-framed as a short synthetic stream so every consumer sees SSE.
func (p *Pipeline) openUpstream(ctx context.Context, canonical *types.CanonicalRequest) (io.ReadCloser, *RequestError) {
	canonical.Stream = true
	resp, err := p.Upstream.ChatCompletions(ctx, canonical)
	if err != nil {
		return nil, transportError(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, upstreamError(resp.StatusCode, codec.FormatUpstreamErrorWithHeaders(resp.StatusCode, raw, resp.Header))
	}

	if resp.IsSSE() {
		return resp.Body, nil
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return nil, transportError(fmt.Sprintf("failed to read upstream body: %v", err))
	}
	res, perr := stream.ParseBuffered(raw, canonical.Model)
	if perr != nil {
		return nil, shapeError("upstream returned neither an event stream nor a chat completion object")
	}
	return synthesizeSSE(res), nil
}

// synthesizeSSE re-frames an assembled result as a minimal Chat Completions
// SSE stream. Used for echo mode and for buffered upstream replies on
// streaming paths.
func synthesizeSSE(res *stream.Result) io.ReadCloser {
	var b strings.Builder

	writeChunk := func(chunk map[string]any) {
		data, err := json.Marshal(chunk)
		if err != nil {
			return
		}
		b.WriteString("data: ")
		b.Write(data)
		b.WriteString("\n\n")
	}

	delta := map[string]any{"role": "assistant", "content": res.AssistantText}
	if len(res.ToolCalls) > 0 {
		calls := make([]map[string]any, 0, len(res.ToolCalls))
		for i, tc := range res.ToolCalls {
			calls = append(calls, map[string]any{
				"index": i,
				"id":    tc.ID,
				"type":  tc.Type,
				"function": map[string]any{
					"name":      tc.Function.Name,
					"arguments": tc.Function.Arguments,
				},
			})
		}
		delta["tool_calls"] = calls
	}
	writeChunk(map[string]any{
		"id":      "",
		"object":  "chat.completion.chunk",
		"model":   res.Model,
		"choices": []any{map[string]any{"index": 0, "delta": delta}},
	})

	finishReason := res.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}
	final := map[string]any{
		"id":      "",
		"object":  "chat.completion.chunk",
		"model":   res.Model,
		"choices": []any{map[string]any{"index": 0, "delta": map[string]any{}, "finish_reason": finishReason}},
	}
	if res.Usage != nil {
		final["usage"] = res.Usage
	}
	writeChunk(final)
	b.WriteString("data: [DONE]\n\n")

	return io.NopCloser(strings.NewReader(b.String()))
}
