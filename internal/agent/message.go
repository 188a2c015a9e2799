package agent

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is a call descriptor recorded on an assistant message: the id
// the endpoint assigned, the tool name, and the raw argument JSON exactly
// as the model produced it.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one turn in the conversation. Messages are immutable once
// appended; the log is append-only except for pruning, which removes a
// contiguous oldest prefix of whole rounds.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// ToolCalls is present only on assistant messages that requested
	// tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolResultFor links a tool message back to its triggering call.
	ToolResultFor string `json:"tool_result_for,omitempty"`
}

// NewUserMessage creates a user Message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage creates an assistant Message, optionally carrying
// the call descriptors of a tool batch.
func NewAssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now(), ToolCalls: calls}
}

// NewToolResultMessage creates a tool Message tagged with the call id it
// answers. Content is the JSON-serialized tool outcome.
func NewToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, Timestamp: time.Now(), ToolResultFor: callID}
}

// round is a contiguous half-open span [Start, End) of the message log
// beginning at a user message. Tool calls and their results always live in
// the same round, which is what makes pruning by rounds safe.
type round struct {
	Start int
	End   int
}

// splitRounds partitions messages into rounds. Messages before the first
// user message (possible after a partial session load) form a leading
// round of their own.
func splitRounds(msgs []Message) []round {
	var rounds []round
	start := 0
	for i, m := range msgs {
		if m.Role == RoleUser && i > start {
			rounds = append(rounds, round{Start: start, End: i})
			start = i
		}
	}
	if start < len(msgs) {
		rounds = append(rounds, round{Start: start, End: len(msgs)})
	}
	return rounds
}
