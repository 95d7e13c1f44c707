package astragraphrag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krump3t/astra-graphrag/internal/config"
	"github.com/krump3t/astra-graphrag/internal/llmclient"
	"github.com/krump3t/astra-graphrag/internal/orchestrator"
	"github.com/krump3t/astra-graphrag/internal/vectorstore"
	"github.com/krump3t/astra-graphrag/internal/wellgraph"
)

type stubEmbedder struct{ vec []float32 }

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}

type stubGenerator struct{ text string }

func (g *stubGenerator) Generate(ctx context.Context, prompt string, opts llmclient.GenerateOptions) (string, error) {
	return g.text, nil
}

func writeGraphFixture(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	nodes := `[
		{"id":"well-1","type":"document","attrs":{"well_name":"Sleipner East"}},
		{"id":"curve-1","type":"curve","attrs":{"mnemonic":"GR"}}
	]`
	edges := `[{"source":"curve-1","target":"well-1","relation":"describes"}]`
	embeddings := `{"model_id":"test-model","embeddings":{"well-1":[1,0]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes.json"), []byte(nodes), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edges.json"), []byte(edges), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_embeddings.json"), []byte(embeddings), 0o644))
	return dir
}

func testConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.VectorDimension = 2
	cfg.NodesPath = filepath.Join(dir, "nodes.json")
	cfg.EdgesPath = filepath.Join(dir, "edges.json")
	cfg.EmbeddingsPath = filepath.Join(dir, "node_embeddings.json")
	cfg.EmbeddingModelID = "test-model"
	return cfg
}

func testDeps() Deps {
	return Deps{
		Store:      vectorstore.NewInMemoryStore(2),
		Collection: "docs",
		Embedder:   &stubEmbedder{vec: []float32{1, 0}},
		Generator:  &stubGenerator{text: "generated"},
	}
}

func TestNewPipeline_LoadsSnapshotAndEmbeddingsFromConfig(t *testing.T) {
	dir := writeGraphFixture(t)

	p, err := NewPipeline(context.Background(), testConfig(dir), testDeps())
	require.NoError(t, err)

	well, ok := p.Snapshot.GetNode("well-1")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, well.Vector)
}

func TestNewPipeline_RejectsMismatchedEmbeddingModel(t *testing.T) {
	dir := writeGraphFixture(t)
	cfg := testConfig(dir)
	cfg.EmbeddingModelID = "some-other-model"

	_, err := NewPipeline(context.Background(), cfg, testDeps())
	require.Error(t, err)
}

func TestNewPipeline_RejectsInvalidConfig(t *testing.T) {
	dir := writeGraphFixture(t)
	cfg := testConfig(dir)
	cfg.RetryMaxAttempts = 0

	_, err := NewPipeline(context.Background(), cfg, testDeps())
	require.Error(t, err)
}

func TestPipeline_AnswersWithFallbackOnlyCache(t *testing.T) {
	dir := writeGraphFixture(t)

	p, err := NewPipeline(context.Background(), testConfig(dir), testDeps())
	require.NoError(t, err)

	res, err := p.Orchestrator.Answer(context.Background(), "How many wells are in the dataset?", orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, "aggregation", res.Metadata.RoutingDecision)
	assert.Equal(t, "1", res.Response)
}

func TestPipeline_UsesProvidedSnapshotWithoutTouchingDisk(t *testing.T) {
	snap, err := wellgraph.LoadFromBytes(
		[]byte(`[{"id":"well-x","type":"document","attrs":{}}]`),
		[]byte(`[]`),
	)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.NodesPath = "/nonexistent/nodes.json"
	cfg.EdgesPath = "/nonexistent/edges.json"
	deps := testDeps()
	deps.Snapshot = snap

	p, err := NewPipeline(context.Background(), cfg, deps)
	require.NoError(t, err)
	_, ok := p.Snapshot.GetNode("well-x")
	assert.True(t, ok)
}
