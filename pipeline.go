package astragraphrag

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms"

	"github.com/krump3t/astra-graphrag/internal/cache"
	"github.com/krump3t/astra-graphrag/internal/config"
	"github.com/krump3t/astra-graphrag/internal/embedclient"
	"github.com/krump3t/astra-graphrag/internal/glossary"
	"github.com/krump3t/astra-graphrag/internal/llmclient"
	"github.com/krump3t/astra-graphrag/internal/orchestrator"
	"github.com/krump3t/astra-graphrag/internal/resilience"
	"github.com/krump3t/astra-graphrag/internal/retrieval"
	"github.com/krump3t/astra-graphrag/internal/toolagent"
	"github.com/krump3t/astra-graphrag/internal/traverse"
	"github.com/krump3t/astra-graphrag/internal/vectorstore"
	"github.com/krump3t/astra-graphrag/internal/wellgraph"
	"github.com/krump3t/astra-graphrag/log"
)

// Deps are the external collaborators a Pipeline is built over: the
// remote stores and model clients the core treats as interfaces.
type Deps struct {
	// Snapshot is the loaded graph. When nil, NewPipeline loads it from
	// the configured nodes/edges paths and, if the configured embeddings
	// file exists, attaches its vectors.
	Snapshot   *wellgraph.Snapshot
	Store      vectorstore.Store
	Collection string
	Embedder   llmclient.Embedder
	Generator  llmclient.Generator
	// ToolModel drives the glossary tool-calling loop; nil disables that
	// routing path.
	ToolModel llms.Model
	// PrimaryTier is the distributed cache tier; nil serves every cache
	// from the in-process fallback alone.
	PrimaryTier cache.Tier
	Logger      log.Logger
}

// Pipeline is the assembled query engine: one Config applied to every
// component, built once at process start.
type Pipeline struct {
	Orchestrator *orchestrator.Orchestrator
	Glossary     *glossary.Service
	Snapshot     *wellgraph.Snapshot
}

// NewPipeline validates cfg and wires every component from it: cache
// sizes and the primary-unavailability policy, retry/backoff parameters,
// the per-host rate limit, glossary timeouts and TTL, the tool iteration
// bound, the HTTP concurrency cap, and the exclusion phrases.
func NewPipeline(ctx context.Context, cfg config.Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = &log.NoOpLogger{}
	}

	snap := deps.Snapshot
	if snap == nil {
		loaded, err := wellgraph.Load(ctx, cfg.NodesPath, cfg.EdgesPath)
		if err != nil {
			return nil, err
		}
		if _, statErr := os.Stat(cfg.EmbeddingsPath); statErr == nil {
			loaded, err = loaded.WithEmbeddings(cfg.EmbeddingsPath, cfg.EmbeddingModelID, cfg.VectorDimension)
			if err != nil {
				return nil, err
			}
		}
		snap = loaded
	}

	retryPolicy := resilience.RetryPolicy{
		MaxAttempts:   cfg.RetryMaxAttempts,
		BaseDelay:     cfg.RetryBaseDelay,
		BackoffFactor: cfg.RetryBackoff,
	}
	unavailability := cache.WithUnavailabilityPolicy(cfg.PrimaryFailuresTrip, cfg.PrimaryUnavailFor)

	generalCache := cache.New(deps.PrimaryTier, cfg.MaxMemoryCacheSize, unavailability, cache.WithLogger(logger))
	embedCache := cache.New(deps.PrimaryTier, cfg.EmbeddingCacheSize, unavailability, cache.WithLogger(logger))

	cachingEmbedder := embedclient.New(deps.Embedder, embedCache, cfg.EmbeddingModelID, 0, logger)

	trav := traverse.New(snap)
	engine := retrieval.New(deps.Store, cachingEmbedder, trav, deps.Collection, cfg.Tuning, logger,
		retrieval.WithRetryPolicy(retryPolicy),
		retrieval.WithConcurrency(cfg.HTTPConcurrency),
	)

	gloss := glossary.New(glossary.DefaultSources(), generalCache,
		cfg.GlossaryConnectTO, cfg.GlossaryReadTO, cfg.GlossaryTotalTO, cfg.GlossaryCacheTTL,
		glossary.WithLogger(logger),
		glossary.WithRetryPolicy(retryPolicy),
		glossary.WithRateLimit(cfg.RateLimitPerSec, cfg.RateLimitMaxWait),
	)

	var loop *toolagent.Loop
	if deps.ToolModel != nil {
		registry := toolagent.NewRegistry(toolagent.NewGlossaryTool(gloss))
		loop = toolagent.New(deps.ToolModel, registry, cfg.MaxToolIterations, logger)
	}

	orch := orchestrator.New(snap, trav, engine, deps.Generator, loop, cfg.GlossaryExclusionPhrases, logger,
		orchestrator.WithRetryPolicy(retryPolicy),
	)

	return &Pipeline{Orchestrator: orch, Glossary: gloss, Snapshot: snap}, nil
}
