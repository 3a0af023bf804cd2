// Package server exposes the HTTP surface: routing, middleware, and request
// parsing around the translation pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/llmbridge/llm-openai-proxy/internal/config"
	"github.com/llmbridge/llm-openai-proxy/internal/pipeline"
)

// maxBodyBytes limits the size of incoming request bodies.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Server is the main HTTP server.
type Server struct {
	Config     *config.ServerConfig
	Pipeline   *pipeline.Pipeline
	httpServer *http.Server
}

// New creates a new server with all routes registered.
func New(cfg *config.ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		Config:   cfg,
		Pipeline: pipeline.New(cfg),
	}

	mux := http.NewServeMux()

	// Status and health
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("GET /v1", s.handleStatus)
	mux.HandleFunc("GET /v1/{$}", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	// OpenAI-compatible routes
	mux.HandleFunc("GET /v1/models", s.handleListModels)
	mux.HandleFunc("POST /v1/responses", s.handleResponses)
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)

	// Anthropic-compatible routes
	mux.HandleFunc("POST /v1/messages", s.handleAnthropicMessages)
	mux.HandleFunc("POST /v1/messages/count_tokens", s.handleAnthropicCountTokens)

	// OPTIONS for CORS preflight
	mux.HandleFunc("OPTIONS /", s.handleOptions)

	handler := corsMiddleware(loggingMiddleware(logger, authMiddleware(cfg, mux)))

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handler,
		// Long write and idle timeouts: slow "thinking" models can keep an
		// SSE stream quiet for several minutes.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  300 * time.Second,
	}

	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
