package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/httplog/v3"

	"github.com/llmbridge/llm-openai-proxy/internal/codec"
	"github.com/llmbridge/llm-openai-proxy/internal/config"
)

const allowedHeaders = "Content-Type, Authorization, X-Requested-With, Accept, Origin, x-proxy-key"

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema: httplog.SchemaECS.Concise(true),

		// Never log bodies or auth headers: request payloads carry
		// user conversations and keys.
		LogRequestHeaders:  []string{"Content-Type", "Origin"},
		LogResponseHeaders: []string{},
		LogRequestBody:     nil,
		LogResponseBody:    nil,
	})(next)
}

func authMiddleware(cfg *config.ServerConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ""
		if cfg != nil {
			key = cfg.ProxyKey
		}
		if key == "" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		switch r.URL.Path {
		case "/v1/responses", "/v1/chat/completions":
			if !keysMatch(r.Header.Get("x-proxy-key"), key) {
				codec.WriteOpenAIError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		case "/v1/messages", "/v1/messages/count_tokens":
			if !anthropicKeyMatch(r, key) {
				codec.WriteAnthropicError(w, http.StatusUnauthorized, "authentication_error", "Invalid API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// anthropicKeyMatch accepts either the x-api-key header or a bearer token.
func anthropicKeyMatch(r *http.Request, key string) bool {
	if keysMatch(r.Header.Get("x-api-key"), key) {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.Fields(header)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return keysMatch(parts[1], key)
	}
	return false
}

func keysMatch(candidate, expected string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1
}
