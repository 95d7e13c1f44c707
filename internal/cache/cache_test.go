package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// failingTier always errors, counting how many times it was asked.
type failingTier struct {
	gets int
}

func (f *failingTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.gets++
	return nil, false, fmt.Errorf("primary down")
}

func (f *failingTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return fmt.Errorf("primary down")
}

func (f *failingTier) Invalidate(ctx context.Context, key string) error {
	return fmt.Errorf("primary down")
}

func TestCache_FailedReprobeReopensCooldown(t *testing.T) {
	tier := &failingTier{}
	c := New(tier, 10, WithUnavailabilityPolicy(3, 60*time.Second))

	clock := time.Unix(0, 0)
	c.now = func() time.Time { return clock }
	ctx := context.Background()

	// Three consecutive failures trip the circuit.
	for i := 0; i < 3; i++ {
		c.Get(ctx, "k")
	}
	assert.Equal(t, 3, tier.gets)

	// Within the cooldown the primary is not consulted.
	clock = clock.Add(30 * time.Second)
	c.Get(ctx, "k")
	assert.Equal(t, 3, tier.gets)

	// Cooldown elapses; one re-probe hits the primary and fails.
	clock = clock.Add(31 * time.Second)
	c.Get(ctx, "k")
	assert.Equal(t, 4, tier.gets)

	// The failed re-probe must re-open the window: the next call inside
	// the fresh cooldown stays on the fallback.
	clock = clock.Add(30 * time.Second)
	c.Get(ctx, "k")
	assert.Equal(t, 4, tier.gets)

	// And once that second cooldown elapses, re-probing resumes.
	clock = clock.Add(31 * time.Second)
	c.Get(ctx, "k")
	assert.Equal(t, 5, tier.gets)
}
