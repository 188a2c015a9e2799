package llm

import "context"

// Provider is the interface every chat-completion backend implements.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "gollm").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}
