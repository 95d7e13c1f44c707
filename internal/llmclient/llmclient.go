// Package llmclient adapts langchaingo's llms.Model and embeddings.Embedder
// interfaces to the two narrow outbound contracts the pipeline actually
// needs: generate(prompt, options) -> text and embed(texts) -> vectors.
// Components downstream (retrieval, tool-calling, generation) depend on
// the Generator/Embedder interfaces here, never on langchaingo directly,
// so a provider swap touches only this package.
package llmclient

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

// GenerateOptions configures a single Generate call. Tests force
// Temperature to 0 for deterministic output.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator is the outbound LLM generation contract.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder is the outbound embedding contract: batch embedding of texts
// into fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelGenerator adapts any langchaingo llms.Model into a Generator.
type ModelGenerator struct {
	model llms.Model
}

// NewModelGenerator wraps model as a Generator.
func NewModelGenerator(model llms.Model) *ModelGenerator {
	return &ModelGenerator{model: model}
}

// Generate implements Generator by issuing a single-turn GenerateContent
// call and returning the first choice's text.
func (g *ModelGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := g.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("llmclient: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmclient: generate: no choices returned")
	}
	return resp.Choices[0].Content, nil
}

// OpenAIGenerator is a thin llms.Model implementation directly over
// github.com/sashabaranov/go-openai, giving the default Generator a
// concrete backend that sits behind the llms.Model-shaped interface
// above (rather than inventing a third interface for "the real thing").
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds an OpenAIGenerator for modelName, authorized
// with apiKey.
func NewOpenAIGenerator(apiKey, modelName string) *OpenAIGenerator {
	return &OpenAIGenerator{client: openai.NewClient(apiKey), model: modelName}
}

// GenerateContent implements llms.Model so an OpenAIGenerator can be
// wrapped by ModelGenerator (or passed anywhere an llms.Model is wanted,
// e.g. the tool-calling agent).
func (g *OpenAIGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := &llms.CallOptions{}
	for _, o := range options {
		o(opts)
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: float32(opts.Temperature),
		Messages:    toOpenAIMessages(messages),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai generator: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: resp.Choices[0].Message.Content},
		},
	}, nil
}

// Call implements the single-string-in/out half of llms.Model.
func (g *OpenAIGenerator) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := g.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func toOpenAIMessages(messages []llms.MessageContent) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case llms.ChatMessageTypeAI:
			role = openai.ChatMessageRoleAssistant
		case llms.ChatMessageTypeSystem:
			role = openai.ChatMessageRoleSystem
		case llms.ChatMessageTypeTool:
			role = openai.ChatMessageRoleTool
		}
		var text string
		for _, part := range m.Parts {
			if tp, ok := part.(llms.TextContent); ok {
				text += tp.Text
			}
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: text})
	}
	return out
}

// LangChainEmbedder adapts a langchaingo embeddings.Embedder into the
// Embedder contract above, converting its float64 output to the
// fixed-length float32 vectors the rest of the pipeline uses.
type LangChainEmbedder struct {
	inner embeddings.Embedder
}

// NewLangChainEmbedder wraps inner as an Embedder.
func NewLangChainEmbedder(inner embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{inner: inner}
}

// Embed implements Embedder.
func (e *LangChainEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.inner.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("langchain embedder: %w", err)
	}
	out := make([][]float32, len(vecs))
	for i, v := range vecs {
		conv := make([]float32, len(v))
		for j, f := range v {
			conv[j] = float32(f)
		}
		out[i] = conv
	}
	return out, nil
}
