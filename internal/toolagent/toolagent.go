// Package toolagent implements a bounded ReAct-style tool-calling loop:
// an llms.Model proposes a tool call, a registry dispatches it, the
// result feeds back as a tool message, repeating until the model stops
// calling tools or MaxIterations is reached. A single bounded tool (the
// glossary lookup) doesn't need a compiled state-graph framework, only
// the iteration cap and tool-call parsing a direct loop provides.
package toolagent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/krump3t/astra-graphrag/log"
)

// Tool matches langchaingo's tools.Tool shape so any langchaingo-style
// tool, including third-party ones, can be registered unchanged.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input string) (string, error)
}

// Registry resolves tool names to implementations and rejects calls to
// anything unregistered with a typed, catchable error rather than a
// panic.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a Registry over tools, indexed by Name().
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// UnknownToolError is returned when the model calls a tool name the
// registry has no entry for.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("toolagent: unknown tool %q", e.Name)
}

func (r *Registry) get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{
							"type":        "string",
							"description": "The input to pass to the tool",
						},
					},
					"required":             []string{"input"},
					"additionalProperties": false,
				},
			},
		})
	}
	return defs
}

// Result summarizes one run of the loop for the orchestrator's metadata.
type Result struct {
	FinalText string
	Invoked   []string // tool names actually called, in call order
	Truncated bool     // hit MaxIterations without a final non-tool-call response
	// ToolFailed reports a tool error the loop did not recover from. A
	// failed call on an early iteration is cleared once a later iteration
	// produces a final answer.
	ToolFailed bool
	Iterations int
}

// Loop runs the bounded ReAct-style loop over model and registry.
type Loop struct {
	model         llms.Model
	registry      *Registry
	maxIterations int
	logger        log.Logger
}

// New builds a Loop. maxIterations <= 0 defaults to 3, matching the
// conservative default MAX_ITERATIONS documented for the glossary
// tool-calling path.
func New(model llms.Model, registry *Registry, maxIterations int, logger log.Logger) *Loop {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &Loop{model: model, registry: registry, maxIterations: maxIterations, logger: logger}
}

// Run drives the loop starting from an initial user message built from
// prompt, returning a Result that never panics regardless of tool or
// model failure: a tool error becomes a tool-result message fed back to
// the model, and a model error ends the loop with whatever text has been
// produced so far.
func (l *Loop) Run(ctx context.Context, prompt string) (Result, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	result := Result{}
	defs := l.registry.definitions()

	for iter := 0; iter < l.maxIterations; iter++ {
		result.Iterations = iter + 1

		resp, err := l.model.GenerateContent(ctx, messages, llms.WithTools(defs))
		if err != nil {
			return result, err
		}
		if len(resp.Choices) == 0 {
			return result, fmt.Errorf("toolagent: model returned no choices")
		}
		choice := resp.Choices[0]

		aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			aiMsg.Parts = append(aiMsg.Parts, llms.TextPart(choice.Content))
			result.FinalText = choice.Content
		}
		for _, tc := range choice.ToolCalls {
			aiMsg.Parts = append(aiMsg.Parts, tc)
		}
		messages = append(messages, aiMsg)

		if len(choice.ToolCalls) == 0 {
			if result.FinalText != "" {
				result.ToolFailed = false
			}
			return result, nil
		}

		for _, tc := range choice.ToolCalls {
			input := toolInput(tc)
			result.Invoked = append(result.Invoked, tc.FunctionCall.Name)

			tool, ok := l.registry.get(tc.FunctionCall.Name)
			var output string
			if !ok {
				result.ToolFailed = true
				output = (&UnknownToolError{Name: tc.FunctionCall.Name}).Error()
				l.logger.Warn("toolagent: %s", output)
			} else {
				out, callErr := tool.Call(ctx, input)
				if callErr != nil {
					result.ToolFailed = true
					output = fmt.Sprintf("error: %v", callErr)
					l.logger.Warn("toolagent: tool %q failed: %v", tc.FunctionCall.Name, callErr)
				} else {
					output = out
				}
			}

			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       tc.FunctionCall.Name,
						Content:    output,
					},
				},
			})
		}
	}

	result.Truncated = true
	return result, nil
}

func toolInput(tc llms.ToolCall) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
		return tc.FunctionCall.Arguments
	}
	if v, ok := args["input"].(string); ok {
		return v
	}
	return tc.FunctionCall.Arguments
}
