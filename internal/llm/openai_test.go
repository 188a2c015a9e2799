package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func completionBody(t *testing.T, r *http.Request) []byte {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	return body
}

func TestOpenAIProviderComplete(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		captured = completionBody(t, r)

		json.NewEncoder(w).Encode(Response{
			ID:    "chatcmpl-1",
			Model: "gpt-4o-mini",
			Choices: []Choice{{
				Message:      Message{Role: RoleAssistant, Content: "hello"},
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key")
	resp, err := p.Complete(context.Background(), Request{
		Model:       "gpt-4o-mini",
		MaxTokens:   256,
		Temperature: 0.2,
		Messages: []Message{
			SystemMessage("be brief"),
			UserMessage("hi"),
		},
		Tools: []ToolDefinition{FunctionTool(FunctionSpec{
			Name:       "echo",
			Parameters: map[string]any{"type": "object"},
		})},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text())
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	// The wire payload carries the chat-completions field names.
	assert.Equal(t, "gpt-4o-mini", gjson.GetBytes(captured, "model").String())
	assert.Equal(t, int64(256), gjson.GetBytes(captured, "max_tokens").Int())
	assert.Equal(t, "system", gjson.GetBytes(captured, "messages.0.role").String())
	assert.Equal(t, "echo", gjson.GetBytes(captured, "tools.0.function.name").String())
}

func TestOpenAIProviderToolCallResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "chatcmpl-2",
			"choices": [{
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "read_file", "arguments": "{\"path\":\"main.go\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 30, "completion_tokens": 12, "total_tokens": 42}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "k")
	resp, err := p.Complete(context.Background(), Request{Messages: []Message{UserMessage("read it")}})
	require.NoError(t, err)

	calls := resp.CallRequests()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_abc", calls[0].ID)
	assert.Equal(t, "read_file", calls[0].Function.Name)
	assert.JSONEq(t, `{"path":"main.go"}`, calls[0].Function.Arguments)
}

func TestOpenAIProviderStatusErrors(t *testing.T) {
	cases := []struct {
		status    int
		body      string
		retryable bool
		message   string
	}{
		{401, `{"error":{"message":"bad key"}}`, false, "bad key"},
		{429, `{"error":{"message":"slow down"}}`, true, "slow down"},
		{500, `{"error":{"message":"oops"}}`, true, "oops"},
		{400, `{"error":{"message":"bad request"}}`, false, "bad request"},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))

		p := NewOpenAIProvider(srv.URL, "k")
		_, err := p.Complete(context.Background(), Request{Messages: []Message{UserMessage("x")}})
		require.Error(t, err, "status %d", tc.status)

		assert.Equal(t, tc.status, StatusCode(err))
		assert.Equal(t, tc.retryable, IsRetryable(err))
		assert.Contains(t, err.Error(), tc.message)
		srv.Close()
	}
}

func TestOpenAIProviderRateLimitRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(429)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "k")
	_, err := p.Complete(context.Background(), Request{Messages: []Message{UserMessage("x")}})

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	require.NotNil(t, rl.RetryAfter)
	assert.Equal(t, 7.0, *rl.RetryAfter)
}

func TestOpenAIProviderEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"chatcmpl-3","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "k")
	_, err := p.Complete(context.Background(), Request{Messages: []Message{UserMessage("x")}})
	assert.Error(t, err)
}

func TestClientRoutesByProviderName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Response{
			Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: "routed"}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "k", WithProviderName("primary"))
	c := NewClient(llmOpts(p)...)

	resp, err := c.Complete(context.Background(), Request{Messages: []Message{UserMessage("x")}})
	require.NoError(t, err)
	assert.Equal(t, "routed", resp.Text())

	_, err = c.Complete(context.Background(), Request{
		Provider: "ghost",
		Messages: []Message{UserMessage("x")},
	})
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func llmOpts(p Provider) []ClientOption {
	return []ClientOption{WithProvider(p), WithDefaultProvider(p.Name())}
}
