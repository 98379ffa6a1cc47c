// Package llm provides chat-completion clients for the analysis
// generator. It supports Anthropic's Claude API and OpenAI's Chat API
// with rate limiting, retries, and context cancellation.
//
// The analyzer treats a client as an opaque text-completion service:
// a fixed system prompt plus a serialized subject description goes in,
// free text comes out. When no provider is configured the factory
// returns an unavailable client and callers fall back to local
// heuristics.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 2048
	defaultTimeout          = 60 * time.Second
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute for both APIs.
const (
	defaultRateLimit = 50.0 / 60.0 // ~0.83 requests per second
	defaultBurst     = 5           // Allow bursts of up to 5 requests
)

// ErrUnavailable is returned by the no-op client. Callers branch on it
// to fall back to deterministic heuristics.
var ErrUnavailable = errors.New("llm: no provider configured")

// Completer generates a text completion for a system prompt plus a
// user prompt.
type Completer interface {
	// Complete returns the generated text or an error if the request
	// fails after retries.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Available returns true if the client is configured and ready.
	Available() bool
}

// Config holds provider configuration.
type Config struct {
	Provider  string `json:"provider"` // "disabled", "anthropic", "openai"
	Model     string `json:"model,omitempty"`
	APIKey    string `json:"-"`
	BaseURL   string `json:"base_url,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Timeout   int    `json:"timeout,omitempty"` // seconds
}

// NewCompleter creates a completion client based on configuration.
//
// Provider "disabled" (or empty) yields a client whose Complete always
// fails with ErrUnavailable and whose Available reports false.
func NewCompleter(cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "", "disabled":
		return &noopCompleter{}, nil
	case "anthropic":
		return newAnthropicCompleter(cfg)
	case "openai":
		return newOpenAICompleter(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// noopCompleter is the unavailable client.
type noopCompleter struct{}

func (n *noopCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return "", ErrUnavailable
}

func (n *noopCompleter) Available() bool {
	return false
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
