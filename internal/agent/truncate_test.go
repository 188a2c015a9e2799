package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateOutputUnderLimit(t *testing.T) {
	s := "short output"
	assert.Equal(t, s, TruncateOutput(s, 100, TruncateHeadTail))
	assert.Equal(t, s, TruncateOutput(s, 0, TruncateHeadTail))
}

func TestTruncateOutputHeadTail(t *testing.T) {
	s := strings.Repeat("a", 500) + strings.Repeat("z", 500)
	out := TruncateOutput(s, 100, TruncateHeadTail)

	assert.Less(t, len(out), len(s))
	assert.True(t, strings.HasPrefix(out, "a"))
	assert.True(t, strings.HasSuffix(out, "z"))
	assert.Contains(t, out, "[900 chars truncated]")
}

func TestTruncateOutputTail(t *testing.T) {
	s := strings.Repeat("a", 500) + "the error line"
	out := TruncateOutput(s, 50, TruncateTail)

	assert.True(t, strings.HasSuffix(out, "the error line"))
	assert.True(t, strings.HasPrefix(out, "... [464 chars truncated] ..."))
}

func TestTruncateToolOutputPerToolLimits(t *testing.T) {
	big := strings.Repeat("x", 60000)

	// read_file allows 50k; an unknown tool gets the default 25k.
	assert.Less(t, len(TruncateToolOutput(big, "read_file", nil)), 60000)
	assert.Less(t, len(TruncateToolOutput(big, "mystery", nil)), 30000)

	// Caller overrides win.
	out := TruncateToolOutput(big, "read_file", map[string]int{"read_file": 1000})
	assert.Less(t, len(out), 1200)
}

func TestTruncateToolOutputPartialOverrideKeepsDefaults(t *testing.T) {
	big := strings.Repeat("x", 60000)
	limits := map[string]int{"shell": 100}

	// The named tool uses the override.
	assert.Less(t, len(TruncateToolOutput(big, "shell", limits)), 200)

	// Tools the override map does not name keep their stock limits
	// rather than collapsing to the global default.
	assert.Greater(t, len(TruncateToolOutput(big, "read_file", limits)), 40000)
	assert.Less(t, len(TruncateToolOutput(big, "mystery", limits)), 30000)
}
