package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestTuningMonotonicity(t *testing.T) {
	tn := Default().Tuning
	assert.GreaterOrEqual(t, tn.TopKHigh, tn.TopKMedium)
	assert.GreaterOrEqual(t, tn.TopKMedium, tn.TopKLow)
	assert.GreaterOrEqual(t, tn.MaxHopsHigh, tn.MaxHopsMedium)
	assert.GreaterOrEqual(t, tn.MaxHopsMedium, tn.MaxHopsLow)
}

func TestValidateRejectsBadDimension(t *testing.T) {
	c := Default()
	c.VectorDimension = 0
	assert.Error(t, c.Validate())
}

func TestFromEnvOverride(t *testing.T) {
	t.Setenv("ASTRA_MAX_TOOL_ITERATIONS", "5")
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5, c.MaxToolIterations)
}

func TestFromEnvRejectsInvalidInt(t *testing.T) {
	t.Setenv("ASTRA_VECTOR_DIMENSION", "not-a-number")
	_, err := FromEnv()
	assert.Error(t, err)
}
