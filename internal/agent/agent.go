package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aidekit/aide/internal/llm"
	"github.com/aidekit/aide/internal/logging"
)

// Completer is the slice of the completion client the loop needs.
// *llm.Client satisfies it, as does any single provider.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config carries the tunables of one agent instance.
type Config struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`

	// MaxRounds bounds consecutive tool-call rounds within one turn.
	MaxRounds int `json:"max_rounds"`

	RequestTimeout time.Duration `json:"request_timeout"`
	ToolTimeout    time.Duration `json:"tool_timeout"`

	TokenBudget    int     `json:"token_budget"`
	PruneThreshold float64 `json:"prune_threshold"`
	MaxHistory     int     `json:"max_history"`
	ShrinkFactor   int     `json:"shrink_factor"`

	// ToolOutputLimits overrides DefaultToolOutputLimits per tool name.
	ToolOutputLimits map[string]int `json:"tool_output_limits,omitempty"`
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		Model:          "gpt-4o-mini",
		MaxTokens:      4096,
		Temperature:    0.7,
		MaxRounds:      25,
		RequestTimeout: 120 * time.Second,
		ToolTimeout:    60 * time.Second,
		TokenBudget:    128000,
		PruneThreshold: 0.7,
		MaxHistory:     50,
		ShrinkFactor:   2,
	}
}

func (c Config) pruneConfig() PruneConfig {
	return PruneConfig{
		TokenBudget:  c.TokenBudget,
		Threshold:    c.PruneThreshold,
		MaxHistory:   c.MaxHistory,
		ShrinkFactor: c.ShrinkFactor,
	}
}

// Result is what a completed turn hands back to the caller: the terminal
// assistant text and the usage reported by the final endpoint response.
type Result struct {
	Content string
	Usage   llm.Usage
}

// Agent runs the tool-call loop over an injected client, registry, and
// conversation. One turn is in flight at a time; ProcessMessage holds the
// turn lock for its full duration.
type Agent struct {
	turnMu sync.Mutex

	client    Completer
	registry  *ToolRegistry
	conv      *Conversation
	metrics   *Metrics
	tasks     *TaskBoard
	cfg       Config
	cfgMu     sync.Mutex
	log       *logging.Logger
	observers observerList
}

// Option configures an Agent at construction.
type Option func(*Agent)

// WithRegistry supplies a shared tool registry.
func WithRegistry(r *ToolRegistry) Option {
	return func(a *Agent) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithObserver attaches an observer for turn and tool events.
func WithObserver(o Observer) Option {
	return func(a *Agent) { a.observers.add(o) }
}

// WithTaskBoard supplies a shared task board.
func WithTaskBoard(b *TaskBoard) Option {
	return func(a *Agent) {
		if b != nil {
			a.tasks = b
		}
	}
}

// New creates an Agent. A nil logger is replaced with a no-op one.
func New(client Completer, cfg Config, log *logging.Logger, opts ...Option) *Agent {
	if log == nil {
		log = logging.Nop()
	}
	a := &Agent{
		client:   client,
		registry: NewToolRegistry(),
		conv:     NewConversation(),
		metrics:  NewMetrics(),
		tasks:    NewTaskBoard(),
		cfg:      cfg,
		log:      log.Sub("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	// Observers get the conversation's history events too, not just the
	// turn and tool events emitted here.
	for _, o := range a.observers.observers {
		a.conv.AddObserver(o)
	}
	return a
}

// Registry returns the tool registry.
func (a *Agent) Registry() *ToolRegistry { return a.registry }

// Conversation returns the conversation state.
func (a *Agent) Conversation() *Conversation { return a.conv }

// Metrics returns the metrics collector.
func (a *Agent) Metrics() *Metrics { return a.metrics }

// Tasks returns the task board.
func (a *Agent) Tasks() *TaskBoard { return a.tasks }

// Config returns a copy of the current tunables.
func (a *Agent) Config() Config {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	return a.cfg
}

// SetConfig replaces the tunables. Takes effect on the next turn.
func (a *Agent) SetConfig(cfg Config) {
	a.cfgMu.Lock()
	defer a.cfgMu.Unlock()
	a.cfg = cfg
}

// SetSystemPrompt replaces the system prompt on the conversation.
func (a *Agent) SetSystemPrompt(prompt string) {
	a.conv.SetSystemPrompt(prompt)
}

// ProcessMessage runs one full turn: append the user text, query the
// model, execute any tool batches it requests, and return the terminal
// assistant text. Empty or whitespace-only input is rejected before any
// state changes. Endpoint errors abort the turn; tool failures do not.
func (a *Agent) ProcessMessage(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &InvalidInputError{Reason: "message must not be empty"}
	}

	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	cfg := a.Config()
	start := time.Now()
	res, err := a.runTurn(ctx, cfg, text)
	elapsed := time.Since(start)

	tokens := 0
	if res != nil {
		tokens = res.Usage.TotalTokens
	}
	a.metrics.RecordOutcome(elapsed, tokens, err == nil)

	data := map[string]any{
		"duration_ms": elapsed.Milliseconds(),
		"success":     err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	a.observers.emit(EventTurnComplete, data)

	if err != nil {
		a.log.Warn().Err(err).Dur("elapsed", elapsed).Msg("turn failed")
		return nil, err
	}
	a.log.Debug().Dur("elapsed", elapsed).Int("tokens", tokens).Msg("turn complete")
	return res, nil
}

func (a *Agent) runTurn(ctx context.Context, cfg Config, text string) (*Result, error) {
	a.conv.Append(NewUserMessage(text))
	a.conv.PruneIfNeeded(cfg.pruneConfig())

	tools := a.registry.Definitions()

	for round := 0; round < cfg.MaxRounds; round++ {
		a.observers.emit(EventRoundStart, map[string]any{"round": round})

		req := a.conv.BuildRequest(cfg.Model, cfg.MaxTokens, cfg.Temperature, tools)

		resp, err := a.complete(ctx, cfg, req)
		if err != nil {
			return nil, err
		}

		calls := fromWireCalls(resp.CallRequests())
		if len(calls) == 0 {
			a.conv.Append(NewAssistantMessage(resp.Text(), nil))
			return &Result{Content: resp.Text(), Usage: resp.Usage}, nil
		}

		a.log.Debug().Int("round", round).Int("calls", len(calls)).Msg("executing tool batch")
		results := a.executeBatch(ctx, cfg, calls)

		a.conv.Append(NewAssistantMessage(resp.Text(), calls))
		for _, r := range results {
			a.conv.Append(r)
		}
	}

	return nil, &RoundLimitExceededError{Rounds: cfg.MaxRounds}
}

func (a *Agent) complete(ctx context.Context, cfg Config, req llm.Request) (*llm.Response, error) {
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}
	return a.client.Complete(ctx, req)
}

// executeBatch runs every call in order and returns one tool-result
// message per call, in the same order. Failures become error-shaped
// results; nothing in a batch can abort the turn.
func (a *Agent) executeBatch(ctx context.Context, cfg Config, calls []ToolCall) []Message {
	results := make([]Message, len(calls))
	for i, call := range calls {
		results[i] = a.executeOne(ctx, cfg, call)
	}
	return results
}

func (a *Agent) executeOne(ctx context.Context, cfg Config, call ToolCall) Message {
	a.observers.emit(EventToolCallStart, map[string]any{
		"id":   call.ID,
		"name": call.Name,
	})

	content, errMsg := a.invoke(ctx, cfg, call)
	if errMsg != "" {
		a.log.Warn().Str("tool", call.Name).Str("error", errMsg).Msg("tool call failed")
		content = errorResult(errMsg)
	}

	// Observers see the untruncated output; only the conversation copy
	// is capped.
	a.observers.emit(EventToolCallEnd, map[string]any{
		"id":     call.ID,
		"name":   call.Name,
		"error":  errMsg != "",
		"output": content,
	})
	content = TruncateToolOutput(content, call.Name, cfg.ToolOutputLimits)
	return NewToolResultMessage(call.ID, content)
}

// invoke resolves, validates, and runs a single call. It returns either
// the serialized result or a non-empty error message.
func (a *Agent) invoke(ctx context.Context, cfg Config, call ToolCall) (string, string) {
	reg := a.registry.Get(call.Name)
	if reg == nil {
		return "", (&ToolNotFoundError{Name: call.Name}).Error()
	}
	if err := reg.ValidateArguments(call.Arguments); err != nil {
		return "", err.Error()
	}

	tctx := ctx
	if cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, cfg.ToolTimeout)
		defer cancel()
	}

	out, err := reg.Execute(tctx, call.Arguments)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", (&ToolTimeoutError{Name: call.Name, Timeout: cfg.ToolTimeout.String()}).Error()
		}
		return "", (&ToolExecutionError{Name: call.Name, Err: err}).Error()
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return "", (&ToolExecutionError{Name: call.Name, Err: err}).Error()
	}
	return string(payload), ""
}

// errorResult shapes a failure as the JSON object the model sees.
func errorResult(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}
