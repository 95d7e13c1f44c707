package apierrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	err := &TransientError{Op: "vector_search", StatusCode: 503, Err: fmt.Errorf("boom")}
	assert.True(t, IsTransient(err))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsTransient(&UpstreamFailure{Op: "vector_search", Err: fmt.Errorf("boom")}))
}

func TestIsNotFound(t *testing.T) {
	err := &NotFoundError{Kind: "node", Key: "well-1"}
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(fmt.Errorf("other")))
}

func TestTransientStatusCode(t *testing.T) {
	for _, code := range []int{408, 425, 429, 500, 502, 503, 504} {
		assert.True(t, TransientStatusCode(code), "code %d should be transient", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, TransientStatusCode(code), "code %d should not be transient", code)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&InvalidInputError{Field: "query", Reason: "too long"}).Error(), "query")
	assert.Contains(t, (&ConfigError{Key: "VECTOR_DIM", Reason: "missing"}).Error(), "VECTOR_DIM")
	assert.Contains(t, (&RateLimitExceeded{Host: "slb.com", MaxWait: "2s"}).Error(), "slb.com")
}
