package resilience

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncPoolRunsAllOps(t *testing.T) {
	pool := NewAsyncPool(4)
	var completed int32
	ops := make([]func(context.Context) error, 10)
	for i := range ops {
		ops[i] = func(ctx context.Context) error {
			atomic.AddInt32(&completed, 1)
			return nil
		}
	}
	require.NoError(t, pool.Run(context.Background(), ops))
	assert.EqualValues(t, 10, completed)
}

func TestAsyncPoolPropagatesError(t *testing.T) {
	pool := NewAsyncPool(2)
	ops := []func(context.Context) error{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return fmt.Errorf("boom") },
	}
	assert.Error(t, pool.Run(context.Background(), ops))
}
