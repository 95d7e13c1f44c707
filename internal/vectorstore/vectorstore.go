// Package vectorstore defines the outbound vector-store contract the
// retrieval engine consumes and an in-memory test double for it. The
// contract is deliberately two operations only: a filtered
// nearest-neighbor find and a batch fetch by id.
package vectorstore

import (
	"context"
	"math"
	"sort"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

// Document is one vector-store record: a node projected into the store's
// shape, with its similarity score populated when returned from a
// vector-sorted Find.
type Document struct {
	ID         string
	EntityType string
	Attributes map[string]any
	Vector     []float32
	Score      float64
}

// Filter is an attribute-name to value mapping. A value may be a scalar
// (equality) or an InSet (membership).
type Filter map[string]any

// InSet marks a filter value as a membership test against the given set,
// the Go expression of a document store's `$in` operator.
type InSet struct {
	Values []string
}

// Store is the outbound vector-store contract: a similarity find and a
// batch fetch by ids, both idempotent reads.
type Store interface {
	// Find returns up to limit documents from collection, optionally
	// pre-filtered and sorted by similarity to sortByVector (nil skips
	// vector sort and returns filter-matching documents in store order).
	Find(ctx context.Context, collection string, filter Filter, sortByVector []float32, limit int) ([]Document, error)
	// BatchFindByIDs fetches documents by id using an implicit $in
	// operator over ids, optionally re-sorted by similarity.
	BatchFindByIDs(ctx context.Context, collection string, ids []string, sortByVector []float32) ([]Document, error)
}

// InMemoryStore is a Store test double: a fixed slice of documents with
// precomputed vectors, searched by brute-force cosine similarity. It
// enforces the configured dimension exactly like a real remote store
// would be expected to: a mismatched vector is an error, never silently
// padded or truncated.
type InMemoryStore struct {
	dimension int
	docs      map[string][]Document // keyed by collection
}

// NewInMemoryStore builds an InMemoryStore that rejects any query vector
// whose length does not match dimension.
func NewInMemoryStore(dimension int) *InMemoryStore {
	return &InMemoryStore{dimension: dimension, docs: make(map[string][]Document)}
}

// Seed adds documents to a collection, used by tests to populate the
// store before exercising retrieval.
func (s *InMemoryStore) Seed(collection string, docs ...Document) {
	s.docs[collection] = append(s.docs[collection], docs...)
}

// Find implements Store.
func (s *InMemoryStore) Find(ctx context.Context, collection string, filter Filter, sortByVector []float32, limit int) ([]Document, error) {
	if sortByVector != nil && len(sortByVector) != s.dimension {
		return nil, &apierrors.ConfigError{Key: "VectorDimension", Reason: "query vector dimension does not match configured store dimension"}
	}

	var matches []Document
	for _, d := range s.docs[collection] {
		if !matchesFilter(d, filter) {
			continue
		}
		matches = append(matches, d)
	}

	if sortByVector != nil {
		for i := range matches {
			matches[i].Score = cosineSimilarity32(sortByVector, matches[i].Vector)
		}
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].ID < matches[j].ID
		})
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// BatchFindByIDs implements Store.
func (s *InMemoryStore) BatchFindByIDs(ctx context.Context, collection string, ids []string, sortByVector []float32) ([]Document, error) {
	if sortByVector != nil && len(sortByVector) != s.dimension {
		return nil, &apierrors.ConfigError{Key: "VectorDimension", Reason: "query vector dimension does not match configured store dimension"}
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var matches []Document
	for _, d := range s.docs[collection] {
		if want[d.ID] {
			matches = append(matches, d)
		}
	}

	if sortByVector != nil {
		for i := range matches {
			matches[i].Score = cosineSimilarity32(sortByVector, matches[i].Vector)
		}
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].ID < matches[j].ID
		})
	}
	return matches, nil
}

func matchesFilter(d Document, filter Filter) bool {
	for attr, want := range filter {
		got, ok := d.Attributes[attr]
		if !ok {
			return false // closed-world: missing attribute excludes the node
		}
		switch w := want.(type) {
		case InSet:
			if !inSet(got, w.Values) {
				return false
			}
		default:
			if got != want {
				return false
			}
		}
	}
	return true
}

func inSet(v any, values []string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, candidate := range values {
		if candidate == s {
			return true
		}
	}
	return false
}

// cosineSimilarity32 computes cosine similarity between two equal-length
// float32 vectors, returning 0 for a zero-norm vector.
func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
