// Package resilience holds the retry, rate-limiting, and bounded-
// concurrency primitives shared by the pipeline's outbound calls: the
// retrieval engine's vector-store search, the orchestrator's LLM
// generation, and the glossary scraper all wrap their I/O through Retry
// rather than reimplementing backoff themselves; the glossary scraper also
// takes a per-host TokenBucket token before each fetch.
package resilience

import (
	"context"
	"time"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

// RetryPolicy configures exponential backoff. MaxAttempts is the number
// of retries attempted after the first try, so a transient failure is
// given 1+MaxAttempts total calls. Sleep before retry N is
// BaseDelay * BackoffFactor^(N-1): with the defaults below that is 1s,
// 2s, 4s before the 2nd, 3rd, and 4th calls. No jitter is applied: this
// is a single-process deployment, a documented trade-off rather than an
// oversight.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy matches the defaults named throughout the design.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, BackoffFactor: 2.0}
}

// Op is any fallible operation Retry can wrap.
type Op func(ctx context.Context) error

// Retry calls op, retrying on apierrors.IsTransient(err) up to
// policy.MaxAttempts additional times after the first call (1+MaxAttempts
// total calls). Any other error, or a context cancellation/deadline,
// returns immediately. Exhausting the retry budget on a transient error
// returns an *apierrors.UpstreamFailure wrapping the last error.
func Retry(ctx context.Context, policy RetryPolicy, op Op) error {
	totalAttempts := policy.MaxAttempts + 1
	var lastErr error
	for attempt := 1; attempt <= totalAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !apierrors.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == totalAttempts {
			break
		}
		delay := backoffDelay(policy, attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return &apierrors.UpstreamFailure{Op: "retry", Err: lastErr}
}

func backoffDelay(policy RetryPolicy, attempt int) time.Duration {
	delay := float64(policy.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= policy.BackoffFactor
	}
	return time.Duration(delay)
}
