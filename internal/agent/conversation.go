package agent

import (
	"encoding/json"
	"sync"

	"github.com/aidekit/aide/internal/llm"
)

// PruneConfig controls token-budget pruning. Zero values disable it.
type PruneConfig struct {
	// TokenBudget is the context size pruning defends, in estimated tokens.
	TokenBudget int
	// Threshold is the fraction of TokenBudget that triggers pruning.
	Threshold float64
	// MaxHistory caps how many rounds a conversation is expected to carry.
	MaxHistory int
	// ShrinkFactor divides MaxHistory to get the round count retained
	// after a prune.
	ShrinkFactor int
}

// retainRounds derives how many whole rounds survive a prune.
func (p PruneConfig) retainRounds() int {
	if p.ShrinkFactor <= 0 {
		return p.MaxHistory
	}
	n := p.MaxHistory / p.ShrinkFactor
	if n < 1 {
		n = 1
	}
	return n
}

// Conversation is the ordered, append-only message log of one session.
// The system prompt is held separately and injected at position 0 only
// when a request is built, so pruning can never evict it and appends can
// never duplicate it.
type Conversation struct {
	mu           sync.Mutex
	systemPrompt string
	messages     []Message
	observers    observerList
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// AddObserver attaches an observer for history events.
func (c *Conversation) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers.add(o)
}

// SetSystemPrompt replaces the system prompt.
func (c *Conversation) SetSystemPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = prompt
}

// SystemPrompt returns the current system prompt.
func (c *Conversation) SystemPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemPrompt
}

// Append adds a message to the end of the log.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.observers.emit(EventHistoryChanged, map[string]any{
		"role":   string(msg.Role),
		"length": len(c.messages),
	})
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of logged messages, excluding the system prompt.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Clear empties the log. The system prompt survives.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.observers.emit(EventHistoryChanged, map[string]any{"length": 0})
}

// restore replaces the log and system prompt wholesale, for session load.
func (c *Conversation) restore(prompt string, msgs []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = prompt
	c.messages = make([]Message, len(msgs))
	copy(c.messages, msgs)
	c.observers.emit(EventHistoryChanged, map[string]any{"length": len(c.messages)})
}

// EstimateTokens returns the estimated token footprint of the system
// prompt plus the full log.
func (c *Conversation) EstimateTokens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estimateLocked()
}

func (c *Conversation) estimateLocked() int {
	total := EstimateTokens(c.systemPrompt)
	for _, m := range c.messages {
		total += estimateMessageTokens(m)
	}
	return total
}

// PruneIfNeeded drops the oldest whole rounds when the estimated token
// footprint crosses Threshold*TokenBudget, keeping the most recent
// retainRounds rounds. A round is a user message and everything up to
// the next user message, so tool calls are never separated from their
// results. Returns the number of messages removed.
func (c *Conversation) PruneIfNeeded(cfg PruneConfig) int {
	if cfg.TokenBudget <= 0 || cfg.Threshold <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	estimate := c.estimateLocked()
	if float64(estimate) <= cfg.Threshold*float64(cfg.TokenBudget) {
		return 0
	}

	rounds := splitRounds(c.messages)
	retain := cfg.retainRounds()
	if len(rounds) <= retain {
		return 0
	}

	cut := rounds[len(rounds)-retain].Start
	removed := cut
	c.messages = append([]Message(nil), c.messages[cut:]...)

	c.observers.emit(EventHistoryPruned, map[string]any{
		"removed_messages": removed,
		"removed_rounds":   len(rounds) - retain,
		"estimate_before":  estimate,
		"estimate_after":   c.estimateLocked(),
	})
	return removed
}

// BuildRequest assembles the wire request for the next completion. The
// system prompt, when set, occupies position 0 exactly once; logged
// messages follow in order with tool calls and results mapped to the
// chat-completions shapes.
func (c *Conversation) BuildRequest(model string, maxTokens int, temperature float64, tools []llm.ToolDefinition) llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]llm.Message, 0, len(c.messages)+1)
	if c.systemPrompt != "" {
		msgs = append(msgs, llm.SystemMessage(c.systemPrompt))
	}
	for _, m := range c.messages {
		msgs = append(msgs, toWireMessage(m))
	}

	return llm.Request{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    msgs,
		Tools:       tools,
	}
}

// toWireMessage maps a logged message onto the chat-completions shape.
func toWireMessage(m Message) llm.Message {
	switch m.Role {
	case RoleAssistant:
		wire := llm.AssistantMessage(m.Content)
		for _, tc := range m.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, llm.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		return wire
	case RoleTool:
		return llm.ToolResultMessage(m.ToolResultFor, m.Content)
	default:
		return llm.Message{Role: string(m.Role), Content: m.Content}
	}
}

// fromWireCalls converts endpoint call descriptors into log form,
// preserving batch order.
func fromWireCalls(calls []llm.ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, tc := range calls {
		out[i] = ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		}
	}
	return out
}
