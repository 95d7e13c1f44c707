package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type stubModel struct {
	content string
	err     error
}

func (s *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.content}}}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return s.content, s.err
}

type stubEmbedder struct {
	vecs [][]float64
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return s.vecs[0], nil
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	return s.vecs, nil
}

func TestModelGenerator_Generate(t *testing.T) {
	g := NewModelGenerator(&stubModel{content: "porosity is a measure of void space"})
	out, err := g.Generate(context.Background(), "define porosity", GenerateOptions{Temperature: 0})
	require.NoError(t, err)
	assert.Equal(t, "porosity is a measure of void space", out)
}

func TestLangChainEmbedder_ConvertsToFloat32(t *testing.T) {
	e := NewLangChainEmbedder(&stubEmbedder{vecs: [][]float64{{0.1, 0.2}, {0.3, 0.4}}})
	out, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.1, out[0][0], 1e-6)
	assert.InDelta(t, 0.4, out[1][1], 1e-6)
}
