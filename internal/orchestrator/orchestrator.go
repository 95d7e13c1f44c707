// Package orchestrator implements the query pipeline: a fixed routing
// order from cheap, deterministic shortcuts (scope check, aggregation,
// structured extraction, relationship traversal, glossary tool call)
// down to retrieval-augmented generation as the fallback. Confidence is
// computed once and threaded through every downstream decision, and
// every stage boundary degrades rather than crashes.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
	"github.com/krump3t/astra-graphrag/internal/llmclient"
	"github.com/krump3t/astra-graphrag/internal/relationship"
	"github.com/krump3t/astra-graphrag/internal/resilience"
	"github.com/krump3t/astra-graphrag/internal/retrieval"
	"github.com/krump3t/astra-graphrag/internal/toolagent"
	"github.com/krump3t/astra-graphrag/internal/traverse"
	"github.com/krump3t/astra-graphrag/internal/vectorstore"
	"github.com/krump3t/astra-graphrag/internal/wellgraph"
	"github.com/krump3t/astra-graphrag/log"
)

const maxQueryLen = 500

// Options configures a single Answer call.
type Options struct {
	// RetrievalLimit, when non-zero, overrides the confidence-derived
	// top_k for the retrieval-generation path.
	RetrievalLimit        int
	Filters               vectorstore.Filter
	ForceDirectGeneration bool
	Deadline              time.Time
}

// AggregationResult is the literal result of a COUNT/LIST/DISTINCT
// shortcut.
type AggregationResult struct {
	Type   string
	Count  int
	Values []string
}

// ScopeCheck mirrors relationship.ScopeCheck in the response metadata.
type ScopeCheck struct {
	InScope bool
	Reason  string
}

// Metadata is the mandatory per-response bookkeeping: every routing
// decision, count, and error a caller or evaluation harness needs to
// audit how an answer was produced.
type Metadata struct {
	TraceID                  string
	RoutingDecision          string
	Confidence               float64
	ConfidenceEvidence       []string
	GraphTraversalApplied    bool
	NumResults               int
	NumResultsAfterTraversal int
	ExpansionRatio           float64
	ScopeCheck               ScopeCheck
	StructuredExtraction     bool
	AggregationResult        *AggregationResult
	ToolInvoked              bool
	ToolLoopTruncated        bool
	ToolFailure              string
	RetrievedNodeIDs         []string
	RetrievedEntityTypes     []string
	FilterApplied            vectorstore.Filter
	FilterFallback           bool
	DecisionLog              []string
	Errors                   []string
	FallbackFrom             string
	TimedOut                 bool
}

// Result is the Answer return value.
type Result struct {
	Response string
	Metadata Metadata
}

// Orchestrator wires the graph snapshot, the retrieval engine, the tool
// loop, and the generation client into the single Answer entry point.
type Orchestrator struct {
	snap        *wellgraph.Snapshot
	traverser   *traverse.Traverser
	retrieval   *retrieval.Engine
	generator   llmclient.Generator
	toolLoop    *toolagent.Loop // nil disables the glossary tool-calling path
	exclusion   []string
	retryPolicy resilience.RetryPolicy
	logger      log.Logger
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

// WithRetryPolicy overrides the default backoff used around LLM
// generation calls.
func WithRetryPolicy(p resilience.RetryPolicy) Option {
	return func(o *Orchestrator) { o.retryPolicy = p }
}

// New builds an Orchestrator. toolLoop may be nil to disable the
// glossary tool-calling path.
func New(snap *wellgraph.Snapshot, traverser *traverse.Traverser, retrievalEngine *retrieval.Engine, generator llmclient.Generator, toolLoop *toolagent.Loop, exclusionPhrases []string, logger log.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	o := &Orchestrator{
		snap:        snap,
		traverser:   traverser,
		retrieval:   retrievalEngine,
		generator:   generator,
		toolLoop:    toolLoop,
		exclusion:   exclusionPhrases,
		retryPolicy: resilience.DefaultRetryPolicy(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Answer runs the full routing pipeline for query.
func (o *Orchestrator) Answer(ctx context.Context, query string, opts Options) (Result, error) {
	meta := Metadata{TraceID: uuid.NewString()}

	if len(query) == 0 || len(query) > maxQueryLen {
		return Result{}, &apierrors.InvalidInputError{Field: "query", Reason: fmt.Sprintf("length must be in (0,%d]", maxQueryLen)}
	}

	if !opts.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, opts.Deadline)
		defer cancel()
	}

	sc := relationship.CheckScope(query)
	meta.ScopeCheck = ScopeCheck{InScope: sc.InScope, Reason: sc.Reason}
	if !sc.InScope {
		meta.RoutingDecision = "out_of_domain"
		meta.DecisionLog = append(meta.DecisionLog, "scope_check:out_of_domain")
		return Result{Response: "I can only answer questions about this well-log dataset.", Metadata: meta}, nil
	}

	confidence, evidence := relationship.Score(query)
	bucket := relationship.BucketOf(confidence)
	meta.Confidence = confidence
	meta.ConfidenceEvidence = evidence

	if kind := relationship.DetectAggregation(query); kind != relationship.AggregationNone && !opts.ForceDirectGeneration {
		agg := o.handleAggregation(kind)
		meta.RoutingDecision = "aggregation"
		meta.AggregationResult = &agg
		meta.DecisionLog = append(meta.DecisionLog, "aggregation:"+string(kind))
		return Result{Response: formatAggregation(agg), Metadata: meta}, nil
	}

	if relationship.IsStructuredExtraction(query) && !opts.ForceDirectGeneration {
		if value, ok := o.handleStructuredExtraction(query); ok {
			meta.RoutingDecision = "structured_extraction"
			meta.StructuredExtraction = true
			meta.DecisionLog = append(meta.DecisionLog, "structured_extraction:hit")
			return Result{Response: value, Metadata: meta}, nil
		}
		meta.DecisionLog = append(meta.DecisionLog, "structured_extraction:miss")
	}

	if relationship.ApplyTraversal(query) && confidence >= 0.60 && !opts.ForceDirectGeneration {
		if response, ok := o.handleRelationship(query); ok {
			meta.RoutingDecision = "relationship"
			meta.GraphTraversalApplied = true
			meta.DecisionLog = append(meta.DecisionLog, "relationship:hit")
			return Result{Response: response, Metadata: meta}, nil
		}
		meta.DecisionLog = append(meta.DecisionLog, "relationship:miss")
	}

	if o.toolLoop != nil && relationship.IsGlossaryTrigger(query) && !relationship.IsExcluded(query, o.exclusion) && !opts.ForceDirectGeneration {
		res, err := o.toolLoop.Run(ctx, query)
		if err == nil && !res.ToolFailed && res.FinalText != "" {
			meta.RoutingDecision = "glossary_tool"
			meta.ToolInvoked = len(res.Invoked) > 0
			meta.ToolLoopTruncated = res.Truncated
			meta.DecisionLog = append(meta.DecisionLog, "glossary_tool:hit")
			return Result{Response: res.FinalText, Metadata: meta}, nil
		}
		meta.ToolInvoked = err == nil && len(res.Invoked) > 0
		if err != nil {
			meta.ToolFailure = err.Error()
		} else if res.ToolFailed {
			meta.ToolFailure = "tool call failed"
		} else {
			meta.ToolFailure = "empty final answer"
		}
		meta.FallbackFrom = "glossary_tool"
		meta.DecisionLog = append(meta.DecisionLog, "glossary_tool:fallthrough")
	}

	return o.answerViaRetrieval(ctx, query, bucket, opts, meta)
}

func (o *Orchestrator) answerViaRetrieval(ctx context.Context, query string, bucket relationship.Bucket, opts Options, meta Metadata) (Result, error) {
	meta.RoutingDecision = "retrieval_generation"

	entityID, _ := relationship.ExtractEntityID(query)
	req := retrieval.Request{
		Query:          query,
		Bucket:         bucket,
		Filters:        opts.Filters,
		TopKOverride:   opts.RetrievalLimit,
		DirectEntityID: entityID,
	}
	res, err := o.retrieval.Retrieve(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			meta.TimedOut = true
			return Result{Response: "The request timed out.", Metadata: meta}, nil
		}
		meta.Errors = append(meta.Errors, err.Error())
		return Result{Response: "I encountered an error retrieving information for this query.", Metadata: meta}, nil
	}
	meta.Errors = append(meta.Errors, res.Errors...)
	meta.ExpansionRatio = res.ExpansionRatio
	meta.FilterApplied = opts.Filters
	meta.FilterFallback = res.FilterFallback

	meta.NumResultsAfterTraversal = len(res.Nodes)
	meta.NumResults = meta.NumResultsAfterTraversal
	if res.ExpansionRatio > 0 {
		meta.NumResults = int(math.Round(float64(meta.NumResultsAfterTraversal) / res.ExpansionRatio))
	}

	seenTypes := map[string]bool{}
	for _, n := range res.Nodes {
		meta.RetrievedNodeIDs = append(meta.RetrievedNodeIDs, n.Node.ID)
		if !seenTypes[n.Node.Type] {
			seenTypes[n.Node.Type] = true
			meta.RetrievedEntityTypes = append(meta.RetrievedEntityTypes, n.Node.Type)
		}
	}

	if len(res.Nodes) == 0 {
		return Result{Response: "I don't have enough information to answer that.", Metadata: meta}, nil
	}

	prompt := buildPrompt(query, res.Nodes)
	var text string
	retryErr := resilience.Retry(ctx, o.retryPolicy, func(ctx context.Context) error {
		var genErr error
		text, genErr = o.generator.Generate(ctx, prompt, llmclient.GenerateOptions{Temperature: 0})
		return genErr
	})
	if retryErr != nil {
		meta.Errors = append(meta.Errors, retryErr.Error())
		return Result{Response: "I encountered an error generating a response.", Metadata: meta}, nil
	}

	return Result{Response: text, Metadata: meta}, nil
}

func buildPrompt(query string, nodes []retrieval.ScoredNode) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the information below. If the information is insufficient, say so.\n\n")
	for _, n := range nodes {
		b.WriteString(fmt.Sprintf("- [%s %s] %s\n", n.Node.Type, n.Node.ID, attrsSummary(n.Node)))
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}

func attrsSummary(n wellgraph.Node) string {
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, n.Attrs[k]))
	}
	return strings.Join(parts, ", ")
}

func (o *Orchestrator) handleAggregation(kind relationship.AggregationKind) AggregationResult {
	documents := o.snap.NodesByType("document")
	switch kind {
	case relationship.AggregationCount:
		return AggregationResult{Type: "COUNT", Count: len(documents)}
	case relationship.AggregationList:
		ids := make([]string, 0, len(documents))
		for _, n := range documents {
			ids = append(ids, n.ID)
		}
		return AggregationResult{Type: "LIST", Values: ids}
	case relationship.AggregationDistinct:
		seen := map[string]bool{}
		var values []string
		for _, n := range documents {
			if name, ok := n.Attr("well_name"); ok && !seen[name] {
				seen[name] = true
				values = append(values, name)
			}
		}
		sort.Strings(values)
		return AggregationResult{Type: "DISTINCT", Values: values}
	default:
		return AggregationResult{}
	}
}

func formatAggregation(agg AggregationResult) string {
	switch agg.Type {
	case "COUNT":
		return strconv.Itoa(agg.Count)
	default:
		return strings.Join(agg.Values, ", ")
	}
}

// handleStructuredExtraction resolves a "what is the X for <entity>"
// query by locating the named entity in the snapshot and reading the
// requested attribute directly, falling back to WellForCurve when a
// curve's containing well is asked for.
func (o *Orchestrator) handleStructuredExtraction(query string) (string, bool) {
	attr, ok := relationship.ExtractionAttribute(query)
	if !ok {
		return "", false
	}
	node, ok := o.findEntity(query)
	if !ok {
		return "", false
	}
	if v, ok := node.Attr(attr); ok {
		return v, true
	}
	if attr == "well_name" && node.Type == "curve" {
		if well, ok := o.traverser.WellForCurve(node.ID); ok {
			if v, ok := well.Attr("well_name"); ok {
				return v, true
			}
		}
	}
	return "", false
}

func (o *Orchestrator) findEntity(query string) (wellgraph.Node, bool) {
	token, ok := relationship.ExtractEntityID(query)
	if !ok {
		return wellgraph.Node{}, false
	}
	for _, n := range o.snap.AllNodes() {
		if strings.Contains(n.ID, token) {
			return n, true
		}
		for _, v := range n.Attrs {
			if s, ok := v.(string); ok && strings.Contains(s, token) {
				return n, true
			}
		}
	}
	return wellgraph.Node{}, false
}

// handleRelationship answers a "what curves are available for <well>"
// style query directly from the traverser, with no LLM involvement.
func (o *Orchestrator) handleRelationship(query string) (string, bool) {
	well, ok := o.findEntity(query)
	if !ok || well.Type != "document" {
		return "", false
	}
	curves := o.traverser.CurvesForWell(well.ID)
	if len(curves) == 0 {
		return "", false
	}
	mnemonics := make([]string, 0, len(curves))
	for _, c := range curves {
		if m, ok := c.Attr("mnemonic"); ok {
			mnemonics = append(mnemonics, m)
		} else {
			mnemonics = append(mnemonics, c.ID)
		}
	}
	return strings.Join(mnemonics, ", "), true
}
