package server

import (
	"net/http"

	"github.com/llmbridge/llm-openai-proxy/internal/codec"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": s.Config.ServiceName,
		"version": s.Config.ServiceVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	codec.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": s.Config.ServiceName,
	})
}
