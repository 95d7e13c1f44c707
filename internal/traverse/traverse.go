// Package traverse provides typed, read-only lookups over a wellgraph
// Snapshot: direct neighbor queries, the two well/curve-specific
// shortcuts, a relationship summary, and a bounded breadth-first
// expansion. None of these operations mutate the snapshot, so they are
// safe for any number of concurrent callers.
package traverse

import (
	"sort"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
	"github.com/krump3t/astra-graphrag/internal/wellgraph"
)

// Direction selects which edge index a traversal reads from.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Traverser answers lookups against one immutable snapshot.
type Traverser struct {
	snap *wellgraph.Snapshot
}

// New builds a Traverser over snap. Construction does no additional
// indexing work: the snapshot already carries edges_by_source and
// edges_by_target.
func New(snap *wellgraph.Snapshot) *Traverser {
	return &Traverser{snap: snap}
}

// GetNode returns the node with id, or ok=false if unknown.
func (t *Traverser) GetNode(id string) (wellgraph.Node, bool) {
	return t.snap.GetNode(id)
}

// Neighbors returns the nodes reachable from id in direction, optionally
// filtered to a single relation and/or a caller-supplied predicate. The
// graph is a multigraph: one entry is returned per matching edge, so a
// pair connected by two parallel same-relation edges yields that
// neighbor twice. Unknown id or unknown relation both yield an empty,
// non-nil slice.
func (t *Traverser) Neighbors(id string, dir Direction, relation string, predicate func(wellgraph.Node) bool) []wellgraph.Node {
	var edges []wellgraph.Edge
	switch dir {
	case Outgoing:
		edges = t.snap.EdgesBySource(id)
	case Incoming:
		edges = t.snap.EdgesByTarget(id)
	case Both:
		edges = append(t.snap.EdgesBySource(id), t.snap.EdgesByTarget(id)...)
	}

	out := make([]wellgraph.Node, 0, len(edges))
	for _, e := range edges {
		if relation != "" && e.Relation != relation {
			continue
		}
		otherID := e.Target
		if e.Source != id {
			otherID = e.Source
		}
		n, ok := t.snap.GetNode(otherID)
		if !ok {
			continue
		}
		if predicate != nil && !predicate(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// CurvesForWell returns the curve nodes reachable by one incoming
// describes edge into wellID.
func (t *Traverser) CurvesForWell(wellID string) []wellgraph.Node {
	return t.Neighbors(wellID, Incoming, "describes", func(n wellgraph.Node) bool {
		return n.Type == "curve"
	})
}

// WellForCurve returns the most likely parent well for curveID: the
// single outgoing describes edge, or if several exist, the highest-weight
// one, with lexicographically-smallest target id as the final, documented
// tie-break.
func (t *Traverser) WellForCurve(curveID string) (wellgraph.Node, bool) {
	edges := t.snap.EdgesBySource(curveID)
	var best *wellgraph.Edge
	for i := range edges {
		e := edges[i]
		if e.Relation != "describes" {
			continue
		}
		if best == nil {
			best = &edges[i]
			continue
		}
		bw, ew := weightOf(*best), weightOf(e)
		if ew > bw {
			best = &edges[i]
		} else if ew == bw && e.Target < best.Target {
			best = &edges[i]
		}
	}
	if best == nil {
		return wellgraph.Node{}, false
	}
	return t.snap.GetNode(best.Target)
}

func weightOf(e wellgraph.Edge) float64 {
	if e.Weight == nil {
		return 0
	}
	return *e.Weight
}

// RelationshipSummary counts outgoing and incoming edges by relation.
func (t *Traverser) RelationshipSummary(id string) (outgoing, incoming map[string]int) {
	outgoing = map[string]int{}
	incoming = map[string]int{}
	for _, e := range t.snap.EdgesBySource(id) {
		outgoing[e.Relation]++
	}
	for _, e := range t.snap.EdgesByTarget(id) {
		incoming[e.Relation]++
	}
	return outgoing, incoming
}

// Expand performs a bounded breadth-first traversal from seeds, stopping
// after maxHops levels. Order is stable: a level's nodes are ordered by
// the order in which they were first discovered, then by id. maxHops=0
// returns the seeds unchanged; maxHops<0 is an InvalidInputError.
func (t *Traverser) Expand(seeds []wellgraph.Node, dir Direction, edgeType string, maxHops int) ([]wellgraph.Node, error) {
	if maxHops < 0 {
		return nil, &apierrors.InvalidInputError{Field: "max_hops", Reason: "must be >= 0"}
	}
	if maxHops == 0 {
		return append([]wellgraph.Node(nil), seeds...), nil
	}

	visited := make(map[string]bool, len(seeds))
	result := make([]wellgraph.Node, 0, len(seeds))
	frontier := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if !visited[s.ID] {
			visited[s.ID] = true
			result = append(result, s)
			frontier = append(frontier, s.ID)
		}
	}

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		type discovered struct {
			node  wellgraph.Node
			order int
		}
		var next []discovered
		order := 0
		for _, id := range frontier {
			for _, n := range t.Neighbors(id, dir, edgeType, nil) {
				if visited[n.ID] {
					continue
				}
				visited[n.ID] = true
				next = append(next, discovered{node: n, order: order})
				order++
			}
		}
		sort.SliceStable(next, func(i, j int) bool {
			if next[i].order != next[j].order {
				return next[i].order < next[j].order
			}
			return next[i].node.ID < next[j].node.ID
		})
		frontier = frontier[:0]
		for _, d := range next {
			result = append(result, d.node)
			frontier = append(frontier, d.node.ID)
		}
	}

	return result, nil
}
