// Package llmrouter declares the contract core uses to ask for LLM
// completions. Provider selection, prompt construction, and the HTTP/gRPC
// transport to the actual model are out of scope (spec §1): this package
// is the seam, not the implementation.
package llmrouter

import "context"

// Task selects which model alias a request is routed to.
type Task string

const (
	TaskCorrection Task = "correction"
	TaskPlanning   Task = "planning"
	TaskSynthesis  Task = "synthesis"
	TaskTriage     Task = "triage"
)

// Router is the narrow contract every subsystem that needs an LLM call
// depends on. A fully qualified provider path (e.g. "anthropic/claude-...")
// or a model alias ("haiku", "sonnet", "opus", "fast", "balanced", "best")
// are both valid return values from a Router's internal model resolution;
// core never inspects which one was used.
type Router interface {
	Generate(ctx context.Context, prompt string, systemPrompt string, task Task) (string, error)
}

// Readiness probes whether a configured LLM provider is reachable and
// authenticated, supplementing the core Router contract per
// original_source/merlya/llm/readiness.py (SPEC_FULL §5.3) so a health
// endpoint has something to call before the first real request.
type Readiness interface {
	Readiness(ctx context.Context) (ready bool, reason string)
}

// Func adapts a plain function to the Router interface, mirroring the
// teacher's http.HandlerFunc-style adapter idiom for single-method
// interfaces implemented by closures in tests.
type Func func(ctx context.Context, prompt string, systemPrompt string, task Task) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string, systemPrompt string, task Task) (string, error) {
	return f(ctx, prompt, systemPrompt, task)
}
