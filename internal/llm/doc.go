// Package llm is the chat-completion client used by the agent loop.
//
// It defines the wire types for an OpenAI-style chat-completions endpoint
// (model, messages, tools in; choices with either text or tool calls out),
// a small Provider interface so the transport is swappable, and a typed
// error hierarchy mapped from HTTP status codes.
//
// Two providers ship with the package: an HTTP provider for any
// OpenAI-compatible endpoint, and a gollm-backed provider for SDK-managed
// backends. The Client routes requests to a registered provider by name.
//
// The package never retries on its own; Retry is an opt-in helper for
// callers that want backoff around Complete.
package llm
