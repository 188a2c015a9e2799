package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aidekit/aide/internal/llm"
)

// scriptedClient replays a fixed sequence of responses or errors and
// records every request it saw.
type scriptedClient struct {
	steps    []scriptedStep
	requests []llm.Request
}

type scriptedStep struct {
	resp *llm.Response
	err  error
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	step := c.steps[i]
	return step.resp, step.err
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		ID: "resp_text",
		Choices: []llm.Choice{{
			Message:      llm.Message{Role: llm.RoleAssistant, Content: text},
			FinishReason: "stop",
		}},
		Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func toolCallResponse(calls ...llm.ToolCall) *llm.Response {
	return &llm.Response{
		ID: "resp_tools",
		Choices: []llm.Choice{{
			Message:      llm.Message{Role: llm.RoleAssistant, ToolCalls: calls},
			FinishReason: "tool_calls",
		}},
		Usage: llm.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
	}
}

func call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{
		ID:       id,
		Type:     "function",
		Function: llm.FunctionCall{Name: name, Arguments: args},
	}
}

func newTestAgent(t *testing.T, client Completer) *Agent {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RequestTimeout = 5 * time.Second
	cfg.ToolTimeout = time.Second
	return New(client, cfg, nil)
}

func echoTool() Registration {
	return Registration{
		Name:        "echo",
		Description: "Echo the msg argument back.",
		Schema: InputSchema{
			Type: "object",
			Properties: map[string]any{
				"msg": map[string]any{"type": "string"},
			},
			Required: []string{"msg"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]string{"msg": gjson.GetBytes(args, "msg").String()}, nil
		},
	}
}

func TestProcessMessagePlainText(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{{resp: textResponse("hello there")}}}
	a := newTestAgent(t, client)

	res, err := a.ProcessMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Content)
	assert.Equal(t, 15, res.Usage.TotalTokens)

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
}

func TestProcessMessageRejectsEmptyInput(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{{resp: textResponse("never")}}}
	a := newTestAgent(t, client)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := a.ProcessMessage(context.Background(), input)
		var invalid *InvalidInputError
		require.ErrorAs(t, err, &invalid)
	}

	// Nothing reached the conversation or the endpoint.
	assert.Equal(t, 0, a.Conversation().Len())
	assert.Empty(t, client.requests)
}

func TestProcessMessageToolRound(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(call("call_1", "echo", `{"msg":"hi"}`))},
		{resp: textResponse("done")},
	}}
	a := newTestAgent(t, client)
	a.Registry().Register(echoTool())

	res, err := a.ProcessMessage(context.Background(), "echo hi")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Content)
	require.Len(t, client.requests, 2)

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "echo", msgs[1].ToolCalls[0].Name)
	assert.Equal(t, RoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolResultFor)
	assert.JSONEq(t, `{"msg":"hi"}`, msgs[2].Content)
	assert.Equal(t, RoleAssistant, msgs[3].Role)

	// The re-query carried the tool result back to the endpoint.
	second := client.requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
}

func TestProcessMessageBatchOrderPreserved(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(
			call("call_a", "echo", `{"msg":"first"}`),
			call("call_b", "echo", `{"msg":"second"}`),
			call("call_c", "echo", `{"msg":"third"}`),
		)},
		{resp: textResponse("ok")},
	}}
	a := newTestAgent(t, client)
	a.Registry().Register(echoTool())

	_, err := a.ProcessMessage(context.Background(), "run three")
	require.NoError(t, err)

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 6) // user, assistant batch, 3 results, assistant text
	assert.Equal(t, "call_a", msgs[2].ToolResultFor)
	assert.Equal(t, "call_b", msgs[3].ToolResultFor)
	assert.Equal(t, "call_c", msgs[4].ToolResultFor)
	assert.JSONEq(t, `{"msg":"second"}`, msgs[3].Content)
}

func TestUnknownToolIsContained(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(call("call_1", "nope", `{}`))},
		{resp: textResponse("recovered")},
	}}
	a := newTestAgent(t, client)

	res, err := a.ProcessMessage(context.Background(), "try it")
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Content)

	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Unknown tool: nope", gjson.Get(msgs[2].Content, "error").String())
}

func TestMissingRequiredFieldIsContained(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(call("call_1", "echo", `{}`))},
		{resp: textResponse("recovered")},
	}}
	a := newTestAgent(t, client)
	a.Registry().Register(echoTool())

	_, err := a.ProcessMessage(context.Background(), "go")
	require.NoError(t, err)

	msgs := a.Conversation().Messages()
	assert.Equal(t, "Required field 'msg' missing", gjson.Get(msgs[2].Content, "error").String())
}

func TestToolExecutionErrorDoesNotAbortBatch(t *testing.T) {
	failing := Registration{
		Name:   "boom",
		Schema: InputSchema{Type: "object"},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("disk on fire")
		},
	}
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(
			call("call_1", "boom", `{}`),
			call("call_2", "echo", `{"msg":"still here"}`),
		)},
		{resp: textResponse("ok")},
	}}
	a := newTestAgent(t, client)
	a.Registry().Register(echoTool())
	a.Registry().Register(failing)

	_, err := a.ProcessMessage(context.Background(), "go")
	require.NoError(t, err)

	msgs := a.Conversation().Messages()
	assert.Contains(t, gjson.Get(msgs[2].Content, "error").String(), "disk on fire")
	assert.JSONEq(t, `{"msg":"still here"}`, msgs[3].Content)
}

func TestEndpointErrorAbortsTurn(t *testing.T) {
	apiErr := llm.ErrorFromStatusCode(429, "rate limited", "openai", nil)
	client := &scriptedClient{steps: []scriptedStep{{err: apiErr}}}
	a := newTestAgent(t, client)

	_, err := a.ProcessMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 429, llm.StatusCode(err))

	// The user message stays; no assistant message was appended, and no
	// retry was attempted.
	msgs := a.Conversation().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Len(t, client.requests, 1)

	m := a.Metrics().Snapshot()
	assert.Equal(t, 1, m.TotalRequests)
	assert.Equal(t, 0.0, m.SuccessRate)
}

func TestRoundLimitExceeded(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(call("call_x", "echo", `{"msg":"again"}`))},
	}}
	a := newTestAgent(t, client)
	a.Registry().Register(echoTool())

	cfg := a.Config()
	cfg.MaxRounds = 3
	a.SetConfig(cfg)

	_, err := a.ProcessMessage(context.Background(), "loop forever")
	var limit *RoundLimitExceededError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 3, limit.Rounds)
	assert.Len(t, client.requests, 3)

	// State up to the abort is preserved: user + 3x(assistant+result).
	assert.Equal(t, 7, a.Conversation().Len())
}

func TestToolTimeoutIsContained(t *testing.T) {
	slow := Registration{
		Name:   "slow",
		Schema: InputSchema{Type: "object"},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return "done", nil
			}
		},
	}
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(call("call_1", "slow", `{}`))},
		{resp: textResponse("moved on")},
	}}
	a := newTestAgent(t, client)
	a.Registry().Register(slow)

	cfg := a.Config()
	cfg.ToolTimeout = 20 * time.Millisecond
	a.SetConfig(cfg)

	res, err := a.ProcessMessage(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "moved on", res.Content)

	msgs := a.Conversation().Messages()
	assert.Contains(t, gjson.Get(msgs[2].Content, "error").String(), "timed out")
}

func TestFirstRequestShape(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{{resp: textResponse("ok")}}}
	a := newTestAgent(t, client)
	a.SetSystemPrompt("be terse")
	a.Registry().Register(echoTool())

	_, err := a.ProcessMessage(context.Background(), "hello")
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "be terse", req.Messages[0].Content)
	assert.Equal(t, llm.RoleUser, req.Messages[1].Role)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "echo", req.Tools[0].Function.Name)
}

func TestObserverSeesToolEvents(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{
		{resp: toolCallResponse(call("call_1", "echo", `{"msg":"hi"}`))},
		{resp: textResponse("ok")},
	}}
	var kinds []EventKind
	obs := ObserverFunc(func(e Event) { kinds = append(kinds, e.Kind) })

	a := New(client, DefaultConfig(), nil, WithObserver(obs))
	a.Registry().Register(echoTool())

	_, err := a.ProcessMessage(context.Background(), "go")
	require.NoError(t, err)

	assert.Contains(t, kinds, EventToolCallStart)
	assert.Contains(t, kinds, EventToolCallEnd)
	assert.Equal(t, EventTurnComplete, kinds[len(kinds)-1])
}

func TestObserverSeesHistoryEvents(t *testing.T) {
	client := &scriptedClient{steps: []scriptedStep{{resp: textResponse("ok")}}}
	var kinds []EventKind
	obs := ObserverFunc(func(e Event) { kinds = append(kinds, e.Kind) })

	cfg := DefaultConfig()
	cfg.TokenBudget = 100
	cfg.PruneThreshold = 0.5
	cfg.MaxHistory = 2
	cfg.ShrinkFactor = 2
	a := New(client, cfg, nil, WithObserver(obs))

	// Two oversized turns: the second crosses the threshold with more
	// than retainRounds rounds on the log, so it prunes.
	payload := strings.Repeat("x", 400)
	_, err := a.ProcessMessage(context.Background(), payload)
	require.NoError(t, err)
	_, err = a.ProcessMessage(context.Background(), payload)
	require.NoError(t, err)

	assert.Contains(t, kinds, EventHistoryChanged)
	assert.Contains(t, kinds, EventHistoryPruned)
}
