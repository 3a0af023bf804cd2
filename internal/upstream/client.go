// Package upstream talks to the configured Chat Completions backend.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/llmbridge/llm-openai-proxy/internal/types"
)

// Endpoint paths on the upstream.
const (
	ChatCompletionsPath = "/v1/chat/completions"
	ModelsPath          = "/v1/models"
)

// ErrNoUpstream is returned when a client is constructed without a base URL.
var ErrNoUpstream = errors.New("no upstream configured")

// httpClient is shared across requests. No global timeout: SSE streams from
// slow "thinking" models may be quiet for minutes, and cancellation comes
// from the request context instead.
var httpClient = &http.Client{}

// Endpoint derives the upstream URL for a target pathname. A base URL that
// already carries a non-trivial path is taken as the full chat completions
// endpoint; anything else resolves against the base origin.
func Endpoint(baseURL, pathname string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid upstream base URL %q", baseURL)
	}
	if pathname == ChatCompletionsPath && u.Path != "" && u.Path != "/" {
		return u.String(), nil
	}
	origin := url.URL{Scheme: u.Scheme, Host: u.Host}
	return origin.String() + pathname, nil
}

// Response wraps an upstream HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// IsSSE reports whether the upstream replied with an event stream.
func (r *Response) IsSSE() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "text/event-stream")
}

// Client makes requests to the upstream backend.
type Client struct {
	BaseURL string
	Tokens  oauth2.TokenSource
	Verbose bool
}

// NewClient creates an upstream client. The API key, when configured, is
// wrapped in a static token source that backs the authorization header.
func NewClient(baseURL, apiKey string, verbose bool) *Client {
	c := &Client{BaseURL: baseURL, Verbose: verbose}
	if apiKey != "" {
		c.Tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey})
	}
	return c
}

// ChatCompletions POSTs the canonical request to the upstream and returns
// the raw streaming response. The caller owns the body.
func (c *Client) ChatCompletions(ctx context.Context, payload *types.CanonicalRequest) (*Response, error) {
	endpoint, err := Endpoint(c.BaseURL, ChatCompletionsPath)
	if err != nil {
		return nil, ErrNoUpstream
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if err := c.setHeaders(req); err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	if c.Verbose {
		slog.Info("upstream.request",
			"endpoint", endpoint,
			"model", payload.Model,
			"messages", len(payload.Messages),
			"tools", len(payload.Tools),
			"stream", payload.Stream,
		)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	if c.Verbose {
		attrs := []any{"status", resp.StatusCode}
		if reqID := requestID(resp.Header); reqID != "" {
			attrs = append(attrs, "request_id", reqID)
		}
		slog.Info("upstream.response", attrs...)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// Models GETs the upstream model list with the configured auth.
func (c *Client) Models(ctx context.Context) (*Response, error) {
	endpoint, err := Endpoint(c.BaseURL, ModelsPath)
	if err != nil {
		return nil, ErrNoUpstream
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := c.setHeaders(req); err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// setHeaders attaches content-type and, when a key is configured, the
// bearer authorization header.
func (c *Client) setHeaders(req *http.Request) error {
	req.Header.Set("Content-Type", "application/json")
	if c.Tokens == nil {
		return nil
	}
	token, err := c.Tokens.Token()
	if err != nil {
		return fmt.Errorf("upstream credentials: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}

func requestID(headers http.Header) string {
	for _, key := range []string{"x-request-id", "x-openai-request-id", "request-id", "cf-ray"} {
		if v := strings.TrimSpace(headers.Get(key)); v != "" {
			return v
		}
	}
	return ""
}
