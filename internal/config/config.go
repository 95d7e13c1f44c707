// Package config centralizes every tunable default used across the
// pipeline, loaded from the environment with explicit fallbacks, and
// validated once at process start so a misconfiguration fails fast rather
// than surfacing mid-query.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

// Confidence-driven retrieval tuning.
type ConfidenceTuning struct {
	TopKHigh, TopKMedium, TopKLow          int
	MaxHopsHigh, MaxHopsMedium, MaxHopsLow int
	WeightVectorHigh, WeightKeywordHigh    float64
	WeightVectorOther, WeightKeywordOther  float64
}

// Config holds every boot-time parameter named across the design: cache
// sizes and TTLs, retry and backoff parameters, rate-limit refill rate,
// the tool-calling iteration bound, HTTP concurrency, and vector
// dimension.
type Config struct {
	// Graph / vector store.
	VectorDimension int
	NodesPath       string
	EdgesPath       string
	EmbeddingsPath  string
	// EmbeddingModelID is the model expected to have produced any on-disk
	// node embeddings; a file stamped with a different model is rejected
	// at load.
	EmbeddingModelID string

	// Cache.
	MaxMemoryCacheSize  int
	EmbeddingCacheSize  int
	GlossaryCacheTTL    time.Duration
	PrimaryUnavailFor   time.Duration
	PrimaryFailuresTrip int

	// Resilience.
	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration
	RetryBackoff      float64
	RateLimitPerSec   float64
	RateLimitMaxWait  time.Duration
	HTTPConcurrency   int
	GlossaryConnectTO time.Duration
	GlossaryReadTO    time.Duration
	GlossaryTotalTO   time.Duration

	// Tool-calling agent.
	MaxToolIterations int

	// Routing.
	GlossaryExclusionPhrases []string

	Tuning ConfidenceTuning
}

// Default returns a Config populated with every default named in the
// design notes, with no environment overrides applied.
func Default() Config {
	return Config{
		VectorDimension:     768,
		NodesPath:           "graph/nodes.json",
		EdgesPath:           "graph/edges.json",
		EmbeddingsPath:      "graph/node_embeddings.json",
		EmbeddingModelID:    "text-embedding-3-small",
		MaxMemoryCacheSize:  1000,
		EmbeddingCacheSize:  2048,
		GlossaryCacheTTL:    15 * time.Minute,
		PrimaryUnavailFor:   60 * time.Second,
		PrimaryFailuresTrip: 3,
		RetryMaxAttempts:    3,
		RetryBaseDelay:      1 * time.Second,
		RetryBackoff:        2.0,
		RateLimitPerSec:     1.0,
		RateLimitMaxWait:    5 * time.Second,
		HTTPConcurrency:     16,
		GlossaryConnectTO:   2 * time.Second,
		GlossaryReadTO:      3 * time.Second,
		GlossaryTotalTO:     5 * time.Second,
		MaxToolIterations:   3,
		GlossaryExclusionPhrases: []string{
			"how many",
			"well name for",
			"curve",
			"what curves",
		},
		Tuning: ConfidenceTuning{
			TopKHigh: 30, TopKMedium: 15, TopKLow: 10,
			MaxHopsHigh: 2, MaxHopsMedium: 1, MaxHopsLow: 0,
			WeightVectorHigh: 0.6, WeightKeywordHigh: 0.4,
			WeightVectorOther: 0.7, WeightKeywordOther: 0.3,
		},
	}
}

// FromEnv returns Default() with any recognized environment variables
// applied on top, and validates the result.
func FromEnv() (Config, error) {
	c := Default()

	if v, ok := os.LookupEnv("ASTRA_VECTOR_DIMENSION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, &apierrors.ConfigError{Key: "ASTRA_VECTOR_DIMENSION", Reason: err.Error()}
		}
		c.VectorDimension = n
	}
	if v, ok := os.LookupEnv("ASTRA_MAX_MEMORY_CACHE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, &apierrors.ConfigError{Key: "ASTRA_MAX_MEMORY_CACHE_SIZE", Reason: err.Error()}
		}
		c.MaxMemoryCacheSize = n
	}
	if v, ok := os.LookupEnv("ASTRA_MAX_TOOL_ITERATIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, &apierrors.ConfigError{Key: "ASTRA_MAX_TOOL_ITERATIONS", Reason: err.Error()}
		}
		c.MaxToolIterations = n
	}
	if v, ok := os.LookupEnv("ASTRA_NODES_PATH"); ok {
		c.NodesPath = v
	}
	if v, ok := os.LookupEnv("ASTRA_EDGES_PATH"); ok {
		c.EdgesPath = v
	}
	if v, ok := os.LookupEnv("ASTRA_EMBEDDINGS_PATH"); ok {
		c.EmbeddingsPath = v
	}
	if v, ok := os.LookupEnv("ASTRA_EMBEDDING_MODEL"); ok {
		c.EmbeddingModelID = v
	}

	return c, c.Validate()
}

// Validate enforces the boot-time invariants that must fail fast rather
// than in the hot path.
func (c Config) Validate() error {
	if c.VectorDimension <= 0 {
		return &apierrors.ConfigError{Key: "VectorDimension", Reason: "must be positive"}
	}
	if c.MaxMemoryCacheSize <= 0 {
		return &apierrors.ConfigError{Key: "MaxMemoryCacheSize", Reason: "must be positive"}
	}
	if c.MaxToolIterations <= 0 {
		return &apierrors.ConfigError{Key: "MaxToolIterations", Reason: "must be positive"}
	}
	if c.RetryMaxAttempts <= 0 {
		return &apierrors.ConfigError{Key: "RetryMaxAttempts", Reason: "must be positive"}
	}
	if c.RateLimitPerSec <= 0 {
		return &apierrors.ConfigError{Key: "RateLimitPerSec", Reason: "must be positive"}
	}
	return nil
}
