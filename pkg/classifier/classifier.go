// Package classifier determines execution strategy for a user request using
// deterministic keyword rules, no LLM call involved.
package classifier

import (
	"strconv"
	"strings"
)

// Complexity buckets a request by expected depth of work.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Strategy selects how much chain-of-thought reasoning to run and surface.
type Strategy string

const (
	StrategyDirect     Strategy = "direct"
	StrategyCoTSilent  Strategy = "cot_silent"
	StrategyCoTVerbose Strategy = "cot_verbose"
)

// complexityKeywords mirrors the three curated keyword buckets; matching is
// substring-based (not word-boundary), matching the reference classifier.
var complexityKeywords = map[Complexity][]string{
	ComplexitySimple: {
		"status", "check", "is", "what is", "show", "list",
		"get", "display", "current", "uptime",
	},
	ComplexityModerate: {
		"find", "search", "which", "where", "compare",
		"verify", "validate", "test", "monitor",
	},
	ComplexityComplex: {
		"analyze", "analysis", "full analysis", "comprehensive",
		"investigate", "diagnose", "troubleshoot", "optimize",
		"benchmark", "audit", "review", "deep dive",
	},
}

var multiTargetKeywords = []string{
	"all", "every", "each", "hosts", "servers", "machines", "across", "multiple",
}

var reformulationTriggers = []string{"make", "do", "perform", "execute", "run"}

var baseSteps = map[Complexity]int{
	ComplexitySimple:   2,
	ComplexityModerate: 4,
	ComplexityComplex:  8,
}

var baseDuration = map[Complexity]int{
	ComplexitySimple:   5,
	ComplexityModerate: 20,
	ComplexityComplex:  45,
}

// Result is the outcome of Classify.
type Result struct {
	Complexity         Complexity
	Strategy           Strategy
	ShowThinking       bool
	NeedsReformulation bool
	EstimatedSteps     int
	EstimatedDurationS int
	Reasoning          string
	SuggestedPrompt    string
}

// Classify analyzes a request and determines how the agent should run it.
func Classify(request string) Result {
	lower := strings.ToLower(request)

	complexity := determineComplexity(lower)
	multiTarget := isMultiTarget(lower)
	needsReformulation := needsReformulation(lower)

	steps := estimateSteps(complexity, multiTarget)
	duration := estimateDuration(complexity, multiTarget)
	strategy, showThinking := determineStrategy(complexity, steps, multiTarget)

	result := Result{
		Complexity:         complexity,
		Strategy:           strategy,
		ShowThinking:       showThinking,
		NeedsReformulation: needsReformulation,
		EstimatedSteps:     steps,
		EstimatedDurationS: duration,
		Reasoning:          reasoning(complexity, strategy, steps, multiTarget),
	}

	if needsReformulation {
		result.SuggestedPrompt = reformulate(request, complexity)
	}

	return result
}

func determineComplexity(lower string) Complexity {
	scores := map[Complexity]int{ComplexitySimple: 0, ComplexityModerate: 0, ComplexityComplex: 0}

	for complexity, keywords := range complexityKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				scores[complexity]++
			}
		}
	}

	maxScore := 0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore == 0 {
		return ComplexityModerate
	}

	// Ties resolve toward moderate rather than whichever bucket happened to
	// be checked first; a tie between simple and complex resolves to
	// complex.
	if scores[ComplexityModerate] == maxScore {
		return ComplexityModerate
	}
	if scores[ComplexityComplex] == maxScore {
		return ComplexityComplex
	}
	return ComplexitySimple
}

func isMultiTarget(lower string) bool {
	for _, kw := range multiTargetKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func needsReformulation(lower string) bool {
	hasVagueVerb := false
	for _, verb := range reformulationTriggers {
		if strings.HasPrefix(lower, verb) {
			hasVagueVerb = true
			break
		}
	}

	isShort := len(strings.Fields(lower)) < 5
	lacksTarget := !strings.Contains(lower, "on") && !strings.Contains(lower, "of")

	return hasVagueVerb || (isShort && lacksTarget)
}

func estimateSteps(complexity Complexity, multiTarget bool) int {
	steps := baseSteps[complexity]
	if multiTarget {
		steps = int(float64(steps) * 1.5)
	}
	if steps > 12 {
		steps = 12
	}
	return steps
}

func estimateDuration(complexity Complexity, multiTarget bool) int {
	duration := baseDuration[complexity]
	if multiTarget {
		duration *= 2
	}
	return duration
}

func determineStrategy(complexity Complexity, steps int, multiTarget bool) (Strategy, bool) {
	if complexity == ComplexitySimple && steps <= 2 {
		return StrategyDirect, false
	}

	if complexity == ComplexityModerate {
		if steps <= 4 {
			return StrategyCoTSilent, false
		}
		return StrategyCoTVerbose, true
	}

	if complexity == ComplexityComplex {
		return StrategyCoTVerbose, true
	}

	if multiTarget {
		return StrategyCoTVerbose, true
	}

	return StrategyCoTSilent, false
}

func reasoning(complexity Complexity, strategy Strategy, steps int, multiTarget bool) string {
	parts := []string{
		"Complexity: " + string(complexity),
		"Estimated steps: " + strconv.Itoa(steps),
	}
	if multiTarget {
		parts = append(parts, "Multi-target detected")
	}
	parts = append(parts, "Strategy: "+string(strategy))
	return strings.Join(parts, " | ")
}
