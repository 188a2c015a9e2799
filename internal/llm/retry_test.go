package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        retries,
		BaseDelay:         0.001,
		MaxDelay:          0.01,
		BackoffMultiplier: 2.0,
	}
}

func TestRetrySucceedsAfterTransientError(t *testing.T) {
	attempts := 0
	result, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", ErrorFromStatusCode(503, "unavailable", "test", nil)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(ctx context.Context) (string, error) {
		attempts++
		return "", ErrorFromStatusCode(401, "bad key", "test", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var auth *AuthenticationError
	assert.ErrorAs(t, err, &auth)
}

func TestRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		attempts++
		return 0, ErrorFromStatusCode(500, "boom", "test", nil)
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial call + 2 retries
}

func TestRetryGivesUpOnLongRetryAfter(t *testing.T) {
	after := 300.0 // seconds, far past MaxDelay
	attempts := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
		attempts++
		return 0, ErrorFromStatusCode(429, "rate limited", "test", &after)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
