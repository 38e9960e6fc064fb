// Package llm wraps the remote chat-completion endpoint used for both
// transcript analysis and long-text improvement.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingAPIKey is returned before any network attempt when a chat
// call is made without a credential.
var ErrMissingAPIKey = errors.New("api key is required")

type Message struct {
	Role    string
	Content string
}

type Client interface {
	// Complete issues one chat-completion call and returns the trimmed
	// content of the first choice. Temperature <= 0 uses the provider
	// default.
	Complete(ctx context.Context, messages []Message, temperature float32) (string, error)
}

// Factory builds a Client for the given credential and model. Components
// accept a Factory rather than a Client so the credential can change at
// runtime through the settings store.
type Factory func(apiKey, model string) (Client, error)

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
}

// WithBaseURL points the client at an alternate OpenAI-compatible
// endpoint (also used by tests to target an httptest server).
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// NewFactory returns a Factory bound to the given options.
func NewFactory(opts ...Option) Factory {
	return func(apiKey, model string) (Client, error) {
		return NewClient(apiKey, model, opts...)
	}
}

func NewClient(apiKey, model string, opts ...Option) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return newOpenAIClient(apiKey, model, o)
}
