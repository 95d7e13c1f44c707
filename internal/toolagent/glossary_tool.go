package toolagent

import (
	"context"

	"github.com/krump3t/astra-graphrag/internal/glossary"
)

// GlossaryTool exposes glossary.Service.DefineTerm as a toolagent.Tool so
// the bounded loop can call it like any other langchaingo-shaped tool.
type GlossaryTool struct {
	svc *glossary.Service
}

// NewGlossaryTool wraps svc as a Tool.
func NewGlossaryTool(svc *glossary.Service) *GlossaryTool {
	return &GlossaryTool{svc: svc}
}

func (t *GlossaryTool) Name() string { return "define_term" }

func (t *GlossaryTool) Description() string {
	return "Looks up the definition of a subsurface well-log domain term (e.g. a curve mnemonic or geology term)."
}

// Call never returns an error: glossary.Service.DefineTerm already
// terminates with a data or error record, so a failure surfaces as
// descriptive text rather than an error the model has to recover from.
func (t *GlossaryTool) Call(ctx context.Context, input string) (string, error) {
	rec := t.svc.DefineTerm(ctx, input)
	if rec.Error != "" {
		return "no definition found for \"" + input + "\": " + rec.Error, nil
	}
	return rec.Definition, nil
}
