package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/llmbridge/llm-openai-proxy/internal/codec"
	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	s.Pipeline.ListModels(r.Context(), w)
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	var req types.ResponsesRequest
	if !decodeBody(w, r, &req, writeOpenAIBadRequest) {
		return
	}
	s.Pipeline.TranslateResponses(r.Context(), w, &req)
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req types.ChatCompletionRequest
	if !decodeBody(w, r, &req, writeOpenAIBadRequest) {
		return
	}
	s.Pipeline.TranslateChatCompletion(r.Context(), w, &req)
}

func (s *Server) handleAnthropicMessages(w http.ResponseWriter, r *http.Request) {
	var req types.AnthropicMessagesRequest
	if !decodeBody(w, r, &req, writeAnthropicBadRequest) {
		return
	}
	s.Pipeline.TranslateAnthropic(r.Context(), w, &req)
}

func (s *Server) handleAnthropicCountTokens(w http.ResponseWriter, r *http.Request) {
	var req types.AnthropicCountTokensRequest
	if !decodeBody(w, r, &req, writeAnthropicBadRequest) {
		return
	}
	s.Pipeline.CountTokens(w, &req)
}

// decodeBody reads a bounded request body into dst, writing a dialect-shaped
// 400 through onError when the body cannot be parsed.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, onError func(http.ResponseWriter, string)) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		onError(w, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		onError(w, "Invalid JSON body")
		return false
	}
	return true
}

func writeOpenAIBadRequest(w http.ResponseWriter, message string) {
	codec.WriteOpenAIError(w, http.StatusBadRequest, message)
}

func writeAnthropicBadRequest(w http.ResponseWriter, message string) {
	codec.WriteAnthropicError(w, http.StatusBadRequest, "invalid_request_error", message)
}
