// Package astragraphrag is a hybrid retrieval-and-reasoning engine over a
// subsurface well-log knowledge graph. It accepts a natural-language
// query, classifies it, routes it to one of several handlers — structured
// aggregation, attribute extraction, graph traversal, glossary lookup via a
// tool-calling agent, or retrieval-augmented generation — and returns an
// answer whose provenance is traceable to specific graph nodes and edges.
//
// # Packages
//
// internal/wellgraph builds the immutable graph snapshot (nodes, edges,
// enrichment, bidirectional indexes) from a pre-built JSON export.
//
// internal/traverse answers typed lookups and bounded breadth-first
// expansion over a snapshot: neighbors, curve/well lookups, relationship
// summaries.
//
// internal/relationship scores query confidence and recognizes
// aggregation, extraction, and relationship-shaped queries.
//
// internal/retrieval runs vector search, hybrid reranking, metadata
// filtering, and graph-based expansion to produce a ranked node list.
//
// internal/glossary answers term-definition requests against a ranked list
// of external sources, with per-host rate limiting and a two-tier cache.
//
// internal/toolagent is a bounded ReAct loop that lets the language model
// call the glossary tool for definition-shaped queries.
//
// internal/cache is the two-tier (distributed primary, in-process LRU
// fallback) cache shared by the embedding client and the glossary
// subsystem.
//
// internal/resilience holds retry-with-backoff, a per-host token-bucket
// rate limiter, and a bounded-concurrency async HTTP helper used
// throughout the other packages.
//
// internal/orchestrator ties the above together behind a single Answer
// call.
//
// # Example
//
//	cfg, err := config.FromEnv()
//	p, err := astragraphrag.NewPipeline(ctx, cfg, astragraphrag.Deps{
//		Store:      store,
//		Collection: "nodes",
//		Embedder:   embedder,
//		Generator:  generator,
//	})
//	result, err := p.Orchestrator.Answer(ctx, "What curves are available for well 15_9-13?", orchestrator.Options{})
//
// # Configuration
//
// internal/config centralizes every tunable named in the design: cache
// sizes and TTLs, retry/backoff parameters, rate-limit refill rate, tool
// iteration bound, and HTTP concurrency cap. All have documented defaults
// and are overridable by environment variable; NewPipeline applies one
// Config to every component.
package astragraphrag // import "github.com/krump3t/astra-graphrag"
