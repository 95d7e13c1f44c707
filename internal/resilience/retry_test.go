package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 2.0}
	attempts := 0
	err := Retry(context.Background(), policy, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &apierrors.TransientError{Op: "test", StatusCode: 503, Err: fmt.Errorf("boom")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsBudget(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, BackoffFactor: 2.0}
	attempts := 0
	err := Retry(context.Background(), policy, func(ctx context.Context) error {
		attempts++
		return &apierrors.TransientError{Op: "test", StatusCode: 500, Err: fmt.Errorf("boom")}
	})
	require.Error(t, err)
	// 1 initial call + MaxAttempts retries.
	assert.Equal(t, 3, attempts)
	var upstream *apierrors.UpstreamFailure
	assert.ErrorAs(t, err, &upstream)
}

func TestRetryDoesNotRetryNonTransient(t *testing.T) {
	policy := DefaultRetryPolicy()
	attempts := 0
	err := Retry(context.Background(), policy, func(ctx context.Context) error {
		attempts++
		return &apierrors.InvalidInputError{Field: "query", Reason: "empty"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultRetryPolicy(), func(ctx context.Context) error {
		t.Fatal("op should not run after cancellation")
		return nil
	})
	assert.Error(t, err)
}
