package agent

import "fmt"

// InvalidInputError reports user input rejected before any network call.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// ToolNotFoundError reports a model call against an unregistered tool.
// It is contained within the batch as an error-shaped tool result, never
// surfaced to the caller.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Unknown tool: %s", e.Name)
}

// ValidationError reports arguments missing a declared required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Required field '%s' missing", e.Field)
}

// ToolExecutionError wraps a failure from a tool's Execute function.
type ToolExecutionError struct {
	Name string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ToolTimeoutError reports a tool that exceeded its execution deadline.
// Like other tool failures it is contained as an error-shaped result.
type ToolTimeoutError struct {
	Name    string
	Timeout string
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("tool %s timed out after %s", e.Name, e.Timeout)
}

// RoundLimitExceededError aborts a turn whose model keeps requesting
// tools past the configured ceiling. Conversation state up to that point
// is preserved.
type RoundLimitExceededError struct {
	Rounds int
}

func (e *RoundLimitExceededError) Error() string {
	return fmt.Sprintf("round limit exceeded: model requested tools for %d consecutive rounds", e.Rounds)
}
