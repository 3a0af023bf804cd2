package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

func TestEndpoint(t *testing.T) {
	cases := []struct {
		base     string
		pathname string
		want     string
		wantErr  bool
	}{
		{"https://api.example.com", ChatCompletionsPath, "https://api.example.com/v1/chat/completions", false},
		{"https://api.example.com/", ChatCompletionsPath, "https://api.example.com/v1/chat/completions", false},
		{"https://api.example.com/openai/deployments/d1/chat", ChatCompletionsPath, "https://api.example.com/openai/deployments/d1/chat", false},
		{"https://api.example.com/openai/deployments/d1/chat", ModelsPath, "https://api.example.com/v1/models", false},
		{"https://api.example.com", ModelsPath, "https://api.example.com/v1/models", false},
		{"", ChatCompletionsPath, "", true},
		{"not a url", ChatCompletionsPath, "", true},
		{"/relative/only", ChatCompletionsPath, "", true},
	}
	for _, tc := range cases {
		got, err := Endpoint(tc.base, tc.pathname)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Endpoint(%q, %q): expected error", tc.base, tc.pathname)
			}
			continue
		}
		if err != nil {
			t.Errorf("Endpoint(%q, %q): %v", tc.base, tc.pathname, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Endpoint(%q, %q) = %q, want %q", tc.base, tc.pathname, got, tc.want)
		}
	}
}

func TestChatCompletionsHeaders(t *testing.T) {
	var gotAuth, gotContentType, gotAccept string
	var gotPayload types.CanonicalRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-key", false)
	resp, err := client.ChatCompletions(context.Background(), &types.CanonicalRequest{
		Model:    "m",
		Messages: []types.ChatMessage{{Role: "user", Content: "hi"}},
		Stream:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if gotAuth != "Bearer secret-key" {
		t.Errorf("unexpected authorization header: %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("unexpected content type: %q", gotContentType)
	}
	if gotAccept != "text/event-stream" {
		t.Errorf("unexpected accept header: %q", gotAccept)
	}
	if !gotPayload.Stream || gotPayload.Model != "m" {
		t.Errorf("unexpected payload: %+v", gotPayload)
	}
	if !resp.IsSSE() {
		t.Error("expected SSE response")
	}
}

func TestChatCompletionsNoKeyNoAuthHeader(t *testing.T) {
	sawAuth := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", false)
	resp, err := client.ChatCompletions(context.Background(), &types.CanonicalRequest{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if sawAuth {
		t.Error("authorization header sent without a configured key")
	}
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", false)
	resp, err := client.Models(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unexpected status: %d", resp.StatusCode)
	}
}
