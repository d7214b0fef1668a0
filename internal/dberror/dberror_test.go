package dberror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{nil, ErrorTypeUnknown},
		{errors.New("dial tcp 10.0.0.1:5432: connection refused"), ErrorTypeConnectivity},
		{errors.New("unexpected EOF"), ErrorTypeConnectivity},
		{errors.New("pool is closed"), ErrorTypeConnectivity},
		{errors.New("FATAL: sorry, too many clients already"), ErrorTypeConnectivity},
		{errors.New("ERROR: canceling statement due to statement timeout"), ErrorTypeTimeout},
		{errors.New("context deadline exceeded while acquiring"), ErrorTypeTimeout},
		{errors.New("FATAL: password authentication failed for user"), ErrorTypeAuth},
		{errors.New("ERROR: permission denied for table partners"), ErrorTypeAuth},
		{errors.New(`ERROR: relation "partner_monthly" does not exist`), ErrorTypeQuery},
		{errors.New("ERROR: syntax error at or near SELECT"), ErrorTypeQuery},
		{errors.New("something else entirely"), ErrorTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "Classify(%v)", tt.err)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("connection refused")))
	assert.True(t, IsTransient(errors.New("i/o timeout")))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("syntax error")))
	// A cancelled caller should never be retried.
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(context.DeadlineExceeded))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(errors.New("connection refused")), "temporarily unavailable")
	assert.Contains(t, UserMessage(errors.New("statement timeout")), "timed out")
	assert.Contains(t, UserMessage(errors.New("weird failure")), "unexpected error")
}

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

	calls := 0
	result, err := Retry(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset by peer")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	cfg := DefaultRetryConfig()

	calls := 0
	_, err := Retry(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errors.New("syntax error at position 7")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestRetryExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	_, err := Retry(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, calls)
}

func TestRetryRespectsContext(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseBackoff: 50 * time.Millisecond, MaxBackoff: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, cfg, func() (int, error) {
		calls++
		return 0, errors.New("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation wins over the backoff sleep")
}

func TestCalculateBackoff(t *testing.T) {
	base, max := 100*time.Millisecond, time.Second
	assert.Equal(t, 200*time.Millisecond, calculateBackoff(base, max, 1))
	assert.Equal(t, 400*time.Millisecond, calculateBackoff(base, max, 2))
	assert.Equal(t, max, calculateBackoff(base, max, 10))
	// Shift overflow clamps to max instead of going negative.
	assert.Equal(t, max, calculateBackoff(base, max, 62))
}
