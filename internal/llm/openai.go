package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultEndpoint is used when no base URL is configured.
const DefaultEndpoint = "https://api.openai.com/v1"

// OpenAIProvider is a direct HTTP client for any OpenAI-compatible
// chat-completions endpoint.
type OpenAIProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = hc }
}

// WithProviderName overrides the provider identifier (default "openai").
func WithProviderName(name string) OpenAIOption {
	return func(p *OpenAIProvider) { p.name = name }
}

// NewOpenAIProvider creates an HTTP provider for the given endpoint.
// An empty baseURL selects the public OpenAI endpoint.
func NewOpenAIProvider(baseURL, apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultEndpoint
	}
	p := &OpenAIProvider{
		name:    "openai",
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return p.name }

// Complete sends a non-streaming completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &ClientError{Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &RequestTimeoutError{ClientError: ClientError{Message: "request timed out", Cause: err}}
		}
		return nil, &NetworkError{ClientError: ClientError{Message: "request failed", Cause: err}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{ClientError: ClientError{Message: "failed to read response", Cause: err}}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.statusError(resp, body)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ClientError{Message: "failed to parse response", Cause: err}
	}
	if len(result.Choices) == 0 {
		return nil, &ClientError{Message: "endpoint returned no choices"}
	}
	return &result, nil
}

// statusError turns a non-2xx response into a typed endpoint error with a
// best-effort parsed message.
func (p *OpenAIProvider) statusError(resp *http.Response, body []byte) error {
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	var retryAfter *float64
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.ParseFloat(ra, 64); err == nil {
			retryAfter = &secs
		}
	}

	return ErrorFromStatusCode(resp.StatusCode, fmt.Sprintf("API error: %s", message), p.name, retryAfter)
}
