// Package config holds the process configuration, read once at startup.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Defaults for the service identity and model list.
const (
	DefaultPort        = 3000
	DefaultServiceName = "llm-openai-proxy"
	DefaultVersion     = "v1"
	DefaultModel       = "custom-llm"
)

// ServerConfig holds all server configuration. Read-only after startup.
type ServerConfig struct {
	Host           string
	Port           int
	ServiceName    string
	ServiceVersion string
	Models         []string
	UpstreamURL    string
	UpstreamKey    string
	ProxyKey       string
	Verbose        bool
}

// DefaultFromEnv creates a ServerConfig with defaults from environment
// variables.
func DefaultFromEnv() *ServerConfig {
	return &ServerConfig{
		Host:           os.Getenv("HOST"),
		Port:           envInt("PORT", DefaultPort),
		ServiceName:    envOrDefault("SERVICE_NAME", DefaultServiceName),
		ServiceVersion: envOrDefault("SERVICE_VERSION", DefaultVersion),
		Models:         splitModels(envOrDefault("MODELS", DefaultModel)),
		UpstreamURL:    strings.TrimSpace(os.Getenv("CUSTOM_LLM_URL")),
		UpstreamKey:    strings.TrimSpace(os.Getenv("CUSTOM_LLM_KEY")),
		ProxyKey:       strings.TrimSpace(os.Getenv("PROXY_KEY")),
		Verbose:        envBool("VERBOSE"),
	}
}

// EchoMode reports whether the proxy answers locally instead of calling an
// upstream: the base URL is missing or does not parse as an absolute URL.
func (c *ServerConfig) EchoMode() bool {
	if c.UpstreamURL == "" {
		return true
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return true
	}
	return false
}

func splitModels(csv string) []string {
	var models []string
	for _, m := range strings.Split(csv, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		models = []string{DefaultModel}
	}
	return models
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
