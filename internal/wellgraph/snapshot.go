// Package wellgraph builds and holds the immutable graph snapshot: nodes
// and edges loaded once from JSON at startup, enriched with derived
// attributes, and indexed by source and target for O(1) lookups. Nothing
// in this package ever mutates a loaded Snapshot; a reload produces a new
// one that callers swap in atomically.
package wellgraph

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

// Node is a graph vertex: a document, curve, well, site, metric, or
// timeseries entity.
type Node struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Attrs  map[string]any `json:"attrs"`
	Vector []float32      `json:"vector,omitempty"`
}

// Attr returns a string attribute value and whether it was present.
func (n Node) Attr(key string) (string, bool) {
	if n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Edge is a directed, typed relation between two node ids.
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Relation string   `json:"relation"`
	Weight   *float64 `json:"weight,omitempty"`
}

// Snapshot is an immutable (Nodes, Edges) pair plus the indexes derived
// from them at load time. It is safe for unlimited concurrent readers.
type Snapshot struct {
	nodes map[string]Node
	edges []Edge

	edgesBySource map[string][]Edge
	edgesByTarget map[string][]Edge

	// insertion order of nodes, preserved for deterministic enumeration
	// and for the enrichment ordering rule (insertion order then id).
	nodeOrder []string
}

// Load reads nodesPath and edgesPath (each a JSON array) and returns a
// fully enriched, indexed Snapshot.
func Load(ctx context.Context, nodesPath, edgesPath string) (*Snapshot, error) {
	nodesRaw, err := os.ReadFile(nodesPath)
	if err != nil {
		return nil, &apierrors.ConfigError{Key: "NodesPath", Reason: err.Error()}
	}
	edgesRaw, err := os.ReadFile(edgesPath)
	if err != nil {
		return nil, &apierrors.ConfigError{Key: "EdgesPath", Reason: err.Error()}
	}

	var rawNodes []Node
	if err := json.Unmarshal(nodesRaw, &rawNodes); err != nil {
		return nil, &apierrors.ConfigError{Key: "NodesPath", Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	var rawEdges []Edge
	if err := json.Unmarshal(edgesRaw, &rawEdges); err != nil {
		return nil, &apierrors.ConfigError{Key: "EdgesPath", Reason: fmt.Sprintf("invalid json: %v", err)}
	}

	return build(rawNodes, rawEdges)
}

// LoadFromBytes is Load without touching the filesystem, used by tests.
func LoadFromBytes(nodesJSON, edgesJSON []byte) (*Snapshot, error) {
	var rawNodes []Node
	if err := json.Unmarshal(nodesJSON, &rawNodes); err != nil {
		return nil, &apierrors.ConfigError{Key: "nodes", Reason: err.Error()}
	}
	var rawEdges []Edge
	if err := json.Unmarshal(edgesJSON, &rawEdges); err != nil {
		return nil, &apierrors.ConfigError{Key: "edges", Reason: err.Error()}
	}
	return build(rawNodes, rawEdges)
}

func build(rawNodes []Node, rawEdges []Edge) (*Snapshot, error) {
	s := &Snapshot{
		nodes:         make(map[string]Node, len(rawNodes)),
		edges:         append([]Edge(nil), rawEdges...),
		edgesBySource: make(map[string][]Edge),
		edgesByTarget: make(map[string][]Edge),
		nodeOrder:     make([]string, 0, len(rawNodes)),
	}

	for _, n := range rawNodes {
		if _, exists := s.nodes[n.ID]; exists {
			return nil, &apierrors.ConfigError{Key: "nodes", Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		if n.Attrs == nil {
			n.Attrs = map[string]any{}
		}
		s.nodes[n.ID] = n
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}

	for _, e := range s.edges {
		s.edgesBySource[e.Source] = append(s.edgesBySource[e.Source], e)
		s.edgesByTarget[e.Target] = append(s.edgesByTarget[e.Target], e)
	}

	s.enrich()

	return s, nil
}

// enrich applies the two documented derivation rules: a curve node
// describing a well gets _well_name copied from the well; a well node
// gets up to 10 of its describing curves' mnemonics in _curve_mnemonics,
// in insertion order then id-ascending among ties.
func (s *Snapshot) enrich() {
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		if n.Type != "curve" {
			continue
		}
		for _, e := range s.edgesBySource[id] {
			if e.Relation != "describes" {
				continue
			}
			target, ok := s.nodes[e.Target]
			if !ok || target.Type != "document" {
				continue
			}
			if wellName, ok := target.Attr("well_name"); ok {
				n.Attrs["_well_name"] = wellName
				s.nodes[id] = n
			}
			break
		}
	}

	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		if n.Type != "document" {
			continue
		}
		incoming := s.edgesByTarget[id]
		type candidate struct {
			id       string
			mnemonic string
			order    int
		}
		var curves []candidate
		for order, e := range incoming {
			if e.Relation != "describes" {
				continue
			}
			curveNode, ok := s.nodes[e.Source]
			if !ok || curveNode.Type != "curve" {
				continue
			}
			mnemonic, ok := curveNode.Attr("mnemonic")
			if !ok {
				continue
			}
			curves = append(curves, candidate{id: curveNode.ID, mnemonic: mnemonic, order: order})
		}
		if len(curves) == 0 {
			continue
		}
		sort.SliceStable(curves, func(i, j int) bool {
			if curves[i].order != curves[j].order {
				return curves[i].order < curves[j].order
			}
			return curves[i].id < curves[j].id
		})
		if len(curves) > 10 {
			curves = curves[:10]
		}
		mnemonics := make([]string, 0, len(curves))
		for _, c := range curves {
			mnemonics = append(mnemonics, c.mnemonic)
		}
		n.Attrs["_curve_mnemonics"] = mnemonics
		s.nodes[id] = n
	}
}

// GetNode returns the node with the given id, and whether it was found.
func (s *Snapshot) GetNode(id string) (Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// EdgesBySource returns a copy of the edges originating at id.
func (s *Snapshot) EdgesBySource(id string) []Edge {
	return append([]Edge(nil), s.edgesBySource[id]...)
}

// EdgesByTarget returns a copy of the edges terminating at id.
func (s *Snapshot) EdgesByTarget(id string) []Edge {
	return append([]Edge(nil), s.edgesByTarget[id]...)
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// NodesByType returns, in insertion order, every node of the given type.
func (s *Snapshot) NodesByType(typ string) []Node {
	var out []Node
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// AllNodes returns every node in insertion order. Callers must not mutate
// the returned slice's elements' Attrs maps.
func (s *Snapshot) AllNodes() []Node {
	out := make([]Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

// SHA256 returns a deterministic content hash of the snapshot, used to
// verify a snapshot is unchanged across an Answer call.
func (s *Snapshot) SHA256() (string, error) {
	h := sha256.New()
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		b, err := json.Marshal(n)
		if err != nil {
			return "", err
		}
		h.Write(b)
	}
	for _, e := range s.edges {
		b, err := json.Marshal(e)
		if err != nil {
			return "", err
		}
		h.Write(b)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
