// Package planner generates step-by-step execution plans by asking an LLM
// to decompose a request, validating its output, and falling back to a
// fixed three-step plan on any failure.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/merlya/merlya-core/pkg/classifier"
)

// Step is one unit of an execution plan.
type Step struct {
	ID              int    `json:"id"`
	Description     string `json:"description"`
	Dependencies    []int  `json:"dependencies"`
	Parallelizable  bool   `json:"parallelizable"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// Generator is the LLM completion call the planner depends on. Its task
// argument is a plain string; llmrouter.Router does not satisfy it
// directly, since its task parameter is an llmrouter.Task.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt, task string) (string, error)
}

// Planner produces execution plans via an LLM, with heuristic fallback.
type Planner struct {
	llm Generator
}

// New creates a Planner backed by llm.
func New(llm Generator) *Planner {
	return &Planner{llm: llm}
}

// GeneratePlan asks the LLM to decompose request into steps, validates the
// result, and falls back to a fixed plan on any failure.
func (p *Planner) GeneratePlan(ctx context.Context, request string, complexity classifier.Complexity, maxSteps int, contextSummary string) []Step {
	prompt := buildPlanningPrompt(request, complexity, maxSteps, contextSummary)

	response, err := p.llm.Generate(ctx, prompt, planningSystemPrompt, "planning")
	if err != nil {
		slog.Error("plan generation failed, using fallback", "error", err)
		return fallbackPlan(request)
	}

	steps, err := parsePlanResponse(response)
	if err != nil {
		slog.Error("failed to parse plan response", "error", err)
		return fallbackPlan(request)
	}
	if len(steps) == 0 {
		slog.Error("plan response contained no steps")
		return fallbackPlan(request)
	}

	return validatePlan(steps, maxSteps)
}

const planningSystemPrompt = "You are an expert DevOps/SRE planner. Generate ONLY valid JSON responses without any markdown formatting or explanations."

func buildPlanningPrompt(request string, complexity classifier.Complexity, maxSteps int, contextSummary string) string {
	targetSteps := 5
	switch complexity {
	case classifier.ComplexitySimple:
		targetSteps = 3
	case classifier.ComplexityComplex:
		targetSteps = 8
	}

	context := ""
	if contextSummary != "" {
		context = "\nCONTEXT: " + contextSummary
	}

	return fmt.Sprintf(`You are an expert DevOps/SRE planner. Your task is to decompose a user request into a structured execution plan.

USER REQUEST: %q

COMPLEXITY: %s
MAX STEPS: %d%s

INSTRUCTIONS:
1. Break down the request into %d logical steps
2. Each step should be clear, actionable, independent or minimally dependent, achievable in under 30 seconds, and verifiable
3. Mark steps that can run in parallel and identify dependencies between steps
4. Each step needs: id, description (max 80 chars), dependencies, parallelizable, estimated_tokens (500-2000)

RESPOND WITH VALID JSON ONLY (no markdown, no explanation):
{"steps": [{"id": 1, "description": "...", "dependencies": [], "parallelizable": false, "estimated_tokens": 500}]}`,
		request, complexity, maxSteps, context, targetSteps)
}

// validatePlan enforces the invariants spec §4.G requires of every step.
func validatePlan(steps []Step, maxSteps int) []Step {
	if len(steps) > maxSteps {
		slog.Warn("plan exceeds max steps, trimming", "steps", len(steps), "max", maxSteps)
		steps = steps[:maxSteps]
	}

	for i := range steps {
		steps[i].ID = i + 1

		if steps[i].Description == "" {
			steps[i].Description = fmt.Sprintf("Step %d", i+1)
		}

		var validDeps []int
		for _, d := range steps[i].Dependencies {
			if d < steps[i].ID {
				validDeps = append(validDeps, d)
			}
		}
		steps[i].Dependencies = validDeps

		if steps[i].EstimatedTokens == 0 {
			steps[i].EstimatedTokens = 1000
		}
	}

	return steps
}

func fallbackPlan(request string) []Step {
	truncated := request
	if len(truncated) > 60 {
		truncated = truncated[:60]
	}

	return []Step{
		{ID: 1, Description: "Gather necessary information and context", Dependencies: nil, EstimatedTokens: 800},
		{ID: 2, Description: "Execute: " + truncated, Dependencies: []int{1}, EstimatedTokens: 1500},
		{ID: 3, Description: "Synthesize results and provide summary", Dependencies: []int{2}, EstimatedTokens: 1000},
	}
}
