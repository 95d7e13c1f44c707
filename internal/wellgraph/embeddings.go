package wellgraph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

// embeddingsFile is the on-disk layout of node_embeddings.json: vectors
// keyed by node id, optionally stamped with the embedding model that
// produced them.
type embeddingsFile struct {
	ModelID    string               `json:"model_id,omitempty"`
	Embeddings map[string][]float32 `json:"embeddings"`
}

// WithEmbeddings reads node vectors from path and returns a new Snapshot
// whose nodes carry them; the receiver is left untouched so callers can
// swap the returned snapshot in atomically. A file stamped with a model
// id other than modelID is rejected, as is any vector whose length
// differs from dimension. An unstamped file is accepted. Vectors for ids
// not present in the snapshot are ignored.
func (s *Snapshot) WithEmbeddings(path, modelID string, dimension int) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &apierrors.ConfigError{Key: "EmbeddingsPath", Reason: err.Error()}
	}
	return s.withEmbeddingsBytes(raw, modelID, dimension)
}

func (s *Snapshot) withEmbeddingsBytes(raw []byte, modelID string, dimension int) (*Snapshot, error) {
	var f embeddingsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &apierrors.ConfigError{Key: "EmbeddingsPath", Reason: fmt.Sprintf("invalid json: %v", err)}
	}
	if f.ModelID != "" && f.ModelID != modelID {
		return nil, &apierrors.ConfigError{
			Key:    "EmbeddingsPath",
			Reason: fmt.Sprintf("embedding model stamp %q does not match configured model %q", f.ModelID, modelID),
		}
	}

	out := &Snapshot{
		nodes:         make(map[string]Node, len(s.nodes)),
		edges:         s.edges,
		edgesBySource: s.edgesBySource,
		edgesByTarget: s.edgesByTarget,
		nodeOrder:     s.nodeOrder,
	}
	for id, n := range s.nodes {
		out.nodes[id] = n
	}

	for id, vec := range f.Embeddings {
		n, ok := out.nodes[id]
		if !ok {
			continue
		}
		if dimension > 0 && len(vec) != dimension {
			return nil, &apierrors.ConfigError{
				Key:    "EmbeddingsPath",
				Reason: fmt.Sprintf("embedding for %q has dimension %d, want %d", id, len(vec), dimension),
			}
		}
		n.Vector = append([]float32(nil), vec...)
		out.nodes[id] = n
	}
	return out, nil
}
