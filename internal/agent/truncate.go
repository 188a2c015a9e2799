package agent

import "fmt"

// TruncationMode selects which part of an oversized output survives.
type TruncationMode string

const (
	// TruncateHeadTail keeps the beginning and end, dropping the middle.
	TruncateHeadTail TruncationMode = "head_tail"
	// TruncateTail keeps only the end, where errors usually land.
	TruncateTail TruncationMode = "tail"
)

// DefaultToolOutputLimits caps tool-result content per tool, in
// characters, before it enters the conversation. Zero or missing means
// the global default.
var DefaultToolOutputLimits = map[string]int{
	"read_file":    50000,
	"shell":        30000,
	"grep":         20000,
	"glob":         20000,
	"git":          20000,
	"syntax_check": 10000,
	"edit_file":    10000,
	"write_file":   2000,
}

// defaultToolOutputModes overrides the truncation mode per tool. Shell
// output truncates from the head because failures report at the tail.
var defaultToolOutputModes = map[string]TruncationMode{
	"shell":        TruncateTail,
	"syntax_check": TruncateTail,
}

// DefaultOutputLimit applies when a tool has no entry in the limits map.
const DefaultOutputLimit = 25000

// TruncateOutput shortens s to at most maxChars plus a marker noting how
// much was dropped. maxChars <= 0 disables truncation.
func TruncateOutput(s string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	dropped := len(s) - maxChars

	switch mode {
	case TruncateTail:
		marker := fmt.Sprintf("... [%d chars truncated] ...\n", dropped)
		return marker + s[len(s)-maxChars:]
	default:
		head := maxChars * 2 / 3
		tail := maxChars - head
		marker := fmt.Sprintf("\n... [%d chars truncated] ...\n", dropped)
		return s[:head] + marker + s[len(s)-tail:]
	}
}

// TruncateToolOutput applies the per-tool limit and mode for toolName.
// The limits map overlays DefaultToolOutputLimits: tools it does not
// name keep their stock limit.
func TruncateToolOutput(s, toolName string, limits map[string]int) string {
	max, ok := limits[toolName]
	if !ok {
		max, ok = DefaultToolOutputLimits[toolName]
	}
	if !ok {
		max = DefaultOutputLimit
	}
	mode, ok := defaultToolOutputModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}
	return TruncateOutput(s, max, mode)
}
