// Package agent implements the orchestration core of the assistant.
//
// It pairs a chat-completion client with a registry of local tools. A turn
// starts with user text, which is appended to the conversation and sent to
// the model; when the model answers with tool calls, the agent executes
// them through the registry, serializes each result back into the
// conversation, and re-queries the model. The loop ends when the model
// returns plain text or the round limit is hit.
//
// The package is organized around these concepts:
//
//   - Conversation: the ordered message log plus a separately-stored
//     system prompt, with round-atomic token-budget pruning.
//   - ToolRegistry: registration, lookup, and argument validation for the
//     tools the model may call.
//   - Agent: the tool-call loop, one in-flight turn at a time.
//   - Metrics: running aggregates updated once per turn.
//   - Snapshot: a value object for session persistence.
//
// Hosts observe progress through the Observer interface; nothing is
// emitted unless an observer is attached.
package agent
