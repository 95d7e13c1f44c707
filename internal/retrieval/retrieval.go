// Package retrieval implements the retrieval engine: confidence-
// tuned vector search against the outbound vector store, hybrid rerank
// of vector similarity against lexical overlap, OR/AND post-filtering
// with a single AND→OR fallback, and graph-based seed expansion that
// augments (never replaces) the initial result set.
package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/krump3t/astra-graphrag/internal/config"
	"github.com/krump3t/astra-graphrag/internal/relationship"
	"github.com/krump3t/astra-graphrag/internal/resilience"
	"github.com/krump3t/astra-graphrag/internal/traverse"
	"github.com/krump3t/astra-graphrag/internal/vectorstore"
	"github.com/krump3t/astra-graphrag/internal/wellgraph"
	"github.com/krump3t/astra-graphrag/log"
)

// Embedder is the single-text embedding dependency the engine needs;
// embedclient.CachingEmbedder satisfies this.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ScoredNode pairs a retrieved node with its rerank score.
type ScoredNode struct {
	Node  wellgraph.Node
	Score float64
}

// Request is a single retrieval call's parameters.
type Request struct {
	Query   string
	Bucket  relationship.Bucket
	Filters vectorstore.Filter
	// TopKOverride, when non-zero, replaces the confidence-derived top_k
	// with an explicit caller-chosen limit.
	TopKOverride int
	// DirectEntityID triggers the high-confidence targeted direct fetch
	// when the query names a specific entity vector search might miss.
	DirectEntityID string
	// SeedType restricts which retrieved nodes seed graph expansion; ""
	// uses every retrieved node as a seed.
	SeedType string
}

// Result is the engine's output: the ordered node list plus the
// bookkeeping the orchestrator surfaces in its response metadata.
type Result struct {
	Nodes          []ScoredNode
	FilterFallback bool
	ExpansionRatio float64
	Errors         []string
}

// Engine implements the retrieval algorithm over a vector store, an
// embedder, and a graph traverser.
type Engine struct {
	store       vectorstore.Store
	embedder    Embedder
	traverser   *traverse.Traverser
	collection  string
	tuning      config.ConfidenceTuning
	retryPolicy resilience.RetryPolicy
	asyncPool   *resilience.AsyncPool
	logger      log.Logger
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithRetryPolicy overrides the default backoff used around vector-store
// calls.
func WithRetryPolicy(p resilience.RetryPolicy) Option {
	return func(e *Engine) { e.retryPolicy = p }
}

// WithConcurrency caps how many of the engine's remote calls may overlap.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.asyncPool = resilience.NewAsyncPool(n) }
}

// New builds a retrieval Engine.
func New(store vectorstore.Store, embedder Embedder, traverser *traverse.Traverser, collection string, tuning config.ConfidenceTuning, logger log.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	e := &Engine{
		store:       store,
		embedder:    embedder,
		traverser:   traverser,
		collection:  collection,
		tuning:      tuning,
		retryPolicy: resilience.DefaultRetryPolicy(),
		asyncPool:   resilience.NewAsyncPool(2),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) topK(bucket relationship.Bucket) int {
	switch bucket {
	case relationship.High:
		return e.tuning.TopKHigh
	case relationship.Medium:
		return e.tuning.TopKMedium
	default:
		return e.tuning.TopKLow
	}
}

func (e *Engine) weights(bucket relationship.Bucket) (vec, kw float64) {
	if bucket == relationship.High {
		return e.tuning.WeightVectorHigh, e.tuning.WeightKeywordHigh
	}
	return e.tuning.WeightVectorOther, e.tuning.WeightKeywordOther
}

func (e *Engine) maxHops(bucket relationship.Bucket) int {
	switch bucket {
	case relationship.High:
		return e.tuning.MaxHopsHigh
	case relationship.Medium:
		return e.tuning.MaxHopsMedium
	default:
		return e.tuning.MaxHopsLow
	}
}

// Retrieve runs the full search-rerank-filter-expand sequence for req.
func (e *Engine) Retrieve(ctx context.Context, req Request) (Result, error) {
	topK := e.topK(req.Bucket)
	if req.TopKOverride > 0 {
		topK = req.TopKOverride
	}
	wVec, wKw := e.weights(req.Bucket)
	maxHops := e.maxHops(req.Bucket)
	kInitial := topK * 3
	if kInitial < 50 {
		kInitial = 50
	}

	vec, directDocs, err := e.embedAndPrefetch(ctx, req)
	if err != nil {
		return Result{}, err
	}

	var docs []vectorstore.Document
	retryErr := resilience.Retry(ctx, e.retryPolicy, func(ctx context.Context) error {
		var ierr error
		docs, ierr = e.store.Find(ctx, e.collection, nil, vec, kInitial)
		return ierr
	})
	if retryErr != nil {
		return Result{}, retryErr
	}

	if len(docs) == 0 {
		return Result{Nodes: nil, ExpansionRatio: 0}, nil
	}

	scored := rerank(req.Query, docs, wVec, wKw)
	if len(scored) > topK {
		scored = scored[:topK]
	}

	filtered, fallback := applyFilters(scored, req.Filters, req.Bucket)
	result := Result{Nodes: filtered, FilterFallback: fallback}

	if req.Bucket == relationship.High && req.DirectEntityID != "" && !containsID(result.Nodes, req.DirectEntityID) {
		if node, ok := directNode(directDocs, req.DirectEntityID); ok {
			result.Nodes = append(result.Nodes, ScoredNode{Node: node, Score: 1.0})
		} else if e.traverser != nil {
			if node, ok := e.traverser.GetNode(req.DirectEntityID); ok {
				result.Nodes = append(result.Nodes, ScoredNode{Node: node, Score: 1.0})
			}
		}
	}

	// The direct-entity fetch above is part of the pre-expansion set:
	// expansion_ratio measures graph-hop growth only.
	before := len(result.Nodes)

	if maxHops > 0 && e.traverser != nil {
		seeds := seedsOf(result.Nodes, req.SeedType)
		expanded, expErr := e.traverser.Expand(seeds, traverse.Both, "", maxHops)
		if expErr != nil {
			result.Errors = append(result.Errors, "expansion: "+expErr.Error())
		} else {
			result.Nodes = mergeByID(result.Nodes, expanded)
		}
	}

	after := len(result.Nodes)
	denom := before
	if denom == 0 {
		denom = 1
	}
	result.ExpansionRatio = float64(after) / float64(denom)

	return result, nil
}

// embedAndPrefetch runs the query embedding and, when the request names a
// high-confidence direct entity id, a BatchFindByIDs prefetch for it
// concurrently through the engine's AsyncPool: the two calls are
// independent remote I/O, and overlapping them shaves the prefetch's
// latency off the critical path instead of paying for it after the
// vector search.
// A failed prefetch is logged and skipped rather than failing the call;
// the direct-fetch path already has an in-memory fallback below.
func (e *Engine) embedAndPrefetch(ctx context.Context, req Request) ([]float32, []vectorstore.Document, error) {
	wantDirect := req.Bucket == relationship.High && req.DirectEntityID != ""

	var vec []float32
	var embedErr error
	var directDocs []vectorstore.Document
	var directErr error

	ops := []func(ctx context.Context) error{
		func(ctx context.Context) error {
			vec, embedErr = e.embedder.EmbedQuery(ctx, req.Query)
			return embedErr
		},
	}
	if wantDirect {
		ops = append(ops, func(ctx context.Context) error {
			directDocs, directErr = e.store.BatchFindByIDs(ctx, e.collection, []string{req.DirectEntityID}, nil)
			return nil
		})
	}

	if err := e.asyncPool.Run(ctx, ops); err != nil {
		return nil, nil, err
	}
	if embedErr != nil {
		return nil, nil, embedErr
	}
	if directErr != nil {
		e.logger.Warn("retrieval: direct entity prefetch for %q failed, falling back to graph lookup: %v", req.DirectEntityID, directErr)
	}
	return vec, directDocs, nil
}

// directNode converts the single document BatchFindByIDs returned (if any)
// back into a wellgraph.Node for the direct-entity-fetch merge step.
func directNode(docs []vectorstore.Document, id string) (wellgraph.Node, bool) {
	for _, d := range docs {
		if d.ID != id {
			continue
		}
		attrs := make(map[string]any, len(d.Attributes))
		for k, v := range d.Attributes {
			attrs[k] = v
		}
		return wellgraph.Node{ID: d.ID, Type: d.EntityType, Attrs: attrs, Vector: d.Vector}, true
	}
	return wellgraph.Node{}, false
}

func containsID(nodes []ScoredNode, id string) bool {
	for _, n := range nodes {
		if n.Node.ID == id {
			return true
		}
	}
	return false
}

func seedsOf(nodes []ScoredNode, seedType string) []wellgraph.Node {
	out := make([]wellgraph.Node, 0, len(nodes))
	for _, n := range nodes {
		if seedType != "" && n.Node.Type != seedType {
			continue
		}
		out = append(out, n.Node)
	}
	return out
}

// mergeByID augments base with any node from expanded not already
// present, preserving base's order first and appending new nodes in
// their expansion order. Expansion augments; it never replaces.
func mergeByID(base []ScoredNode, expanded []wellgraph.Node) []ScoredNode {
	seen := make(map[string]bool, len(base))
	for _, n := range base {
		seen[n.Node.ID] = true
	}
	out := append([]ScoredNode(nil), base...)
	for _, n := range expanded {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, ScoredNode{Node: n, Score: 0})
	}
	return out
}

// rerank combines normalized vector similarity with a lexical overlap
// score into one ordered list, ties broken by id ascending for
// determinism.
func rerank(query string, docs []vectorstore.Document, wVec, wKw float64) []ScoredNode {
	queryTerms := strings.Fields(strings.ToLower(query))

	scored := make([]ScoredNode, len(docs))
	for i, d := range docs {
		normVec := (d.Score + 1) / 2 // cosine similarity in [-1,1] -> [0,1]
		kwScore := lexicalOverlap(queryTerms, d.Attributes)
		final := wVec*normVec + wKw*kwScore

		attrs := make(map[string]any, len(d.Attributes))
		for k, v := range d.Attributes {
			attrs[k] = v
		}
		scored[i] = ScoredNode{
			Node: wellgraph.Node{
				ID:     d.ID,
				Type:   d.EntityType,
				Attrs:  attrs,
				Vector: d.Vector,
			},
			Score: final,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Node.ID < scored[j].Node.ID
	})
	return scored
}

func lexicalOverlap(queryTerms []string, attrs map[string]any) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	blob := strings.ToLower(textOf(attrs))
	var hits int
	for _, term := range queryTerms {
		if strings.Contains(blob, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

func textOf(attrs map[string]any) string {
	var b strings.Builder
	for _, v := range attrs {
		switch s := v.(type) {
		case string:
			b.WriteString(s)
			b.WriteString(" ")
		}
	}
	return b.String()
}

// applyFilters applies req.Filters using OR semantics at high confidence
// and AND semantics otherwise, with a single fallback to OR if AND
// yields zero hits. Filtering on a missing attribute excludes the node
// (closed-world).
func applyFilters(nodes []ScoredNode, filters vectorstore.Filter, bucket relationship.Bucket) ([]ScoredNode, bool) {
	if len(filters) == 0 {
		return nodes, false
	}

	and := bucket != relationship.High
	result := filterBy(nodes, filters, and)
	if and && len(result) == 0 {
		return filterBy(nodes, filters, false), true
	}
	return result, false
}

func filterBy(nodes []ScoredNode, filters vectorstore.Filter, and bool) []ScoredNode {
	var out []ScoredNode
	for _, n := range nodes {
		if matchesNode(n.Node, filters, and) {
			out = append(out, n)
		}
	}
	return out
}

func matchesNode(n wellgraph.Node, filters vectorstore.Filter, and bool) bool {
	anyMatch := false
	for attr, want := range filters {
		got, ok := n.Attrs[attr]
		matched := ok && matchesValue(got, want)
		if and && !matched {
			return false
		}
		if matched {
			anyMatch = true
		}
	}
	if and {
		return true
	}
	return anyMatch
}

func matchesValue(got any, want any) bool {
	switch w := want.(type) {
	case vectorstore.InSet:
		s, ok := got.(string)
		if !ok {
			return false
		}
		for _, v := range w.Values {
			if v == s {
				return true
			}
		}
		return false
	default:
		return got == want
	}
}
