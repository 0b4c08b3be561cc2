package main

import (
	"context"

	"github.com/merlya/merlya-core/pkg/llmrouter"
)

// plannerGenerator adapts an llmrouter.Router (task as the llmrouter.Task
// enum) to pkg/planner's narrower Generator contract (task as a plain
// string), the two having been built independently against the same "LLM
// call" seam. llmrouter.Task is a defined string type, so the conversion
// is direct.
type plannerGenerator struct {
	router llmrouter.Router
}

func newPlannerGenerator(router llmrouter.Router) plannerGenerator {
	return plannerGenerator{router: router}
}

// Generate satisfies planner.Generator.
func (g plannerGenerator) Generate(ctx context.Context, prompt, systemPrompt, task string) (string, error) {
	return g.router.Generate(ctx, prompt, systemPrompt, llmrouter.Task(task))
}
