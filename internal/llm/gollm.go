package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmProvider rides the gollm SDK for backends where the assistant should
// not speak raw HTTP (managed auth, provider-specific quirks). It flattens
// the conversation into a gollm prompt and lifts tool calls back out of the
// generated text.
type GollmProvider struct {
	name  string
	llm   gollm.LLM
	model string
}

// GollmOption configures a GollmProvider.
type GollmOption func(*gollmConfig)

type gollmConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithGollmAPIKey sets the API key. When empty, gollm reads it from the
// provider's environment variable.
func WithGollmAPIKey(key string) GollmOption {
	return func(c *gollmConfig) { c.apiKey = key }
}

// WithGollmModel sets the default model.
func WithGollmModel(model string) GollmOption {
	return func(c *gollmConfig) { c.model = model }
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmOption {
	return func(c *gollmConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmProvider creates a gollm-backed provider for the named backend
// ("openai", "anthropic", ...).
func NewGollmProvider(backend string, opts ...GollmOption) (*GollmProvider, error) {
	cfg := &gollmConfig{
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		model = "gpt-4o-mini"
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(backend),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries are the caller's responsibility
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm backend %s: %w", backend, err)
	}

	return &GollmProvider{name: "gollm", llm: inner, model: model}, nil
}

// Name returns the provider identifier.
func (p *GollmProvider) Name() string { return p.name }

// Complete sends a blocking request through gollm.
func (p *GollmProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := p.translateRequest(req)
	p.applyRequestOptions(req)

	text, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, p.translateError(err)
	}
	return p.buildResponse(req, text), nil
}

// translateRequest flattens the message list into a gollm Prompt.
func (p *GollmProvider) translateRequest(req Request) *gollm.Prompt {
	var systemPrompt string
	var userParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.Content + "\n"
		case RoleUser:
			userParts = append(userParts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				userParts = append(userParts, "[Assistant]: "+msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				userParts = append(userParts,
					fmt.Sprintf("[Assistant called %s]: %s", tc.Function.Name, tc.Function.Arguments))
			}
		case RoleTool:
			userParts = append(userParts, "[Tool Result "+msg.ToolCallID+"]: "+msg.Content)
		}
	}

	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens > 0 {
		promptOpts = append(promptOpts, gollm.WithMaxLength(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Function.Name,
					Description: t.Function.Description,
					Parameters:  t.Function.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
		promptOpts = append(promptOpts, gollm.WithToolChoice("auto"))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions pushes request-level parameters down to gollm.
func (p *GollmProvider) applyRequestOptions(req Request) {
	if req.Model != "" {
		p.llm.SetOption("model", req.Model)
	}
	if req.Temperature != 0 {
		p.llm.SetOption("temperature", req.Temperature)
	}
	if req.MaxTokens > 0 {
		p.llm.SetOption("max_tokens", req.MaxTokens)
	}
}

// buildResponse wraps generated text in the chat-completions wire shape.
func (p *GollmProvider) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msg := Message{Role: RoleAssistant}
	finish := "stop"

	toolCalls := p.parseToolCalls(text)
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
		msg.Content = p.stripToolCallJSON(text)
		finish = "tool_calls"
	} else {
		msg.Content = text
	}

	// gollm does not expose usage; estimate from character counts so the
	// caller's accounting stays monotonic.
	in := 0
	for _, m := range req.Messages {
		in += len(m.Content) / 4
	}
	out := len(text) / 4

	return &Response{
		ID:      "resp_" + uuid.New().String()[:8],
		Model:   model,
		Choices: []Choice{{Message: msg, FinishReason: finish}},
		Usage:   Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}
}

// parseToolCalls lifts tool calls gollm embeds as JSON in the text.
func (p *GollmProvider) parseToolCalls(text string) []ToolCall {
	start := strings.Index(text, `[{"name"`)
	if start == -1 {
		return nil
	}

	var rawCalls []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(text[start:]), &rawCalls); err != nil {
		return nil
	}

	calls := make([]ToolCall, 0, len(rawCalls))
	for _, rc := range rawCalls {
		calls = append(calls, ToolCall{
			ID:   "call_" + uuid.New().String()[:8],
			Type: "function",
			Function: FunctionCall{
				Name:      rc.Name,
				Arguments: string(rc.Arguments),
			},
		})
	}
	return calls
}

func (p *GollmProvider) stripToolCallJSON(text string) string {
	if idx := strings.Index(text, `[{"name"`); idx != -1 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

// translateError classifies a gollm error into the typed hierarchy.
func (p *GollmProvider) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	wrap := func(status int) APIError {
		return APIError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    p.name,
			StatusCode:  status,
		}
	}

	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return &AuthenticationError{APIError: wrap(401)}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		return &AccessDeniedError{APIError: wrap(403)}
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		return &NotFoundError{APIError: wrap(404)}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		ae := wrap(429)
		ae.Retryable = true
		return &RateLimitError{APIError: ae}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return &ContextLengthError{APIError: wrap(413)}
	case strings.Contains(lower, "500") || strings.Contains(lower, "internal server"):
		ae := wrap(500)
		ae.Retryable = true
		return &ServerError{APIError: ae}
	case strings.Contains(lower, "timeout"):
		return &RequestTimeoutError{ClientError: ClientError{Message: msg, Cause: err}}
	default:
		ae := wrap(0)
		ae.Retryable = true
		return &ae
	}
}
