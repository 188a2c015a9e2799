package agent

// CharsPerToken is the divisor for the character-count token estimator.
// Real tokenizers average a bit under four characters per token for
// English prose and a bit over for code; four keeps the estimate cheap
// and slightly conservative without shipping a tokenizer per model.
const CharsPerToken = 4

// EstimateTokens approximates the token count of a string.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// estimateMessageTokens approximates the token cost of a message,
// including tool-call descriptors, from its serialized length.
func estimateMessageTokens(m Message) int {
	n := len(m.Content)
	for _, tc := range m.ToolCalls {
		n += len(tc.Name) + len(tc.Arguments)
	}
	return n / CharsPerToken
}
