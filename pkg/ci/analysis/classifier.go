// Package analysis classifies CI failure text into a canonical ErrorType
// via a semantic (embedding-centroid) path with a keyword-table fallback,
// and bridges confirmed failures into the external incident/skill memory
// (§4.N).
package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/merlya/merlya-core/pkg/ci/models"
)

var errEmbedderUnavailable = errors.New("analysis: embedder unavailable")

// pattern is one canonical error type's description used to build its
// semantic centroid, plus the keyword table used by the fallback path.
type pattern struct {
	errType     models.ErrorType
	description string
	examples    []string
	keywords    []string
	suggestions []string
}

var patterns = []pattern{
	{
		errType:     models.ErrorTypeTestFailure,
		description: "a unit or integration test assertion failed",
		examples:    []string{"assertion failed expected but got", "test failed FAIL", "AssertionError"},
		keywords:    []string{"assert", "expected", "test failed", "FAIL", "assertion"},
		suggestions: []string{"review assertions", "check recent changes", "run locally", "look for race conditions"},
	},
	{
		errType:     models.ErrorTypeBuildFailure,
		description: "the build step failed to produce artifacts",
		examples:    []string{"build failed", "make: *** Error", "build step exited with error"},
		keywords:    []string{"build failed", "make: ***", "build error"},
		suggestions: []string{"check build logs for the failing target", "verify toolchain versions", "reproduce the build locally"},
	},
	{
		errType:     models.ErrorTypeCompileError,
		description: "source code failed to compile",
		examples:    []string{"syntax error unexpected token", "undefined reference to", "cannot find symbol"},
		keywords:    []string{"syntax error", "undefined reference", "cannot find symbol", "compile error"},
		suggestions: []string{"fix the reported syntax/type error", "check for missing imports", "run the compiler locally"},
	},
	{
		errType:     models.ErrorTypeDependencyError,
		description: "a package dependency could not be resolved or installed",
		examples:    []string{"npm ERR! Could not resolve dependency", "could not find a version that satisfies", "module not found"},
		keywords:    []string{"npm err", "could not resolve", "module not found", "no matching version", "dependency"},
		suggestions: []string{"check lockfile for conflicting versions", "clear dependency cache", "pin the offending package"},
	},
	{
		errType:     models.ErrorTypeLintError,
		description: "a static analysis or style check failed",
		examples:    []string{"lint error", "eslint found problems", "golangci-lint issues"},
		keywords:    []string{"lint", "eslint", "golangci-lint", "style violation"},
		suggestions: []string{"run the linter locally and fix reported issues", "check for auto-fixable rules"},
	},
	{
		errType:     models.ErrorTypeTimeout,
		description: "the job exceeded its allotted time",
		examples:    []string{"operation timed out", "context deadline exceeded", "job cancelled after timeout"},
		keywords:    []string{"timed out", "timeout", "deadline exceeded"},
		suggestions: []string{"check for a hung process or slow external dependency", "consider increasing the timeout"},
	},
	{
		errType:     models.ErrorTypePermissionDenied,
		description: "an operation was rejected for lack of authorization",
		examples:    []string{"permission denied", "403 Forbidden", "access denied"},
		keywords:    []string{"permission denied", "403", "forbidden", "access denied", "unauthorized"},
		suggestions: []string{"verify the token/credentials have the required scope", "check repository/branch protection rules"},
	},
	{
		errType:     models.ErrorTypeResourceExhausted,
		description: "the runner ran out of memory, disk, or other resource",
		examples:    []string{"out of memory", "no space left on device", "killed (OOM)"},
		keywords:    []string{"out of memory", "no space left", "oom", "resource exhausted"},
		suggestions: []string{"reduce resource usage or request a larger runner", "clean up build caches"},
	},
	{
		errType:     models.ErrorTypeNetworkError,
		description: "a network call failed",
		examples:    []string{"connection refused", "could not resolve host", "network unreachable"},
		keywords:    []string{"connection refused", "could not resolve host", "network unreachable", "connection reset"},
		suggestions: []string{"retry the job", "check the remote service's status", "verify DNS/network egress rules"},
	},
	{
		errType:     models.ErrorTypeConfigError,
		description: "the pipeline or application configuration was invalid",
		examples:    []string{"invalid configuration", "yaml: unmarshal errors", "missing required field"},
		keywords:    []string{"invalid config", "yaml:", "missing required field", "configuration error"},
		suggestions: []string{"validate the config file against its schema", "check for a recent config change"},
	},
	{
		errType:     models.ErrorTypeFlaky,
		description: "the job failed intermittently without a code change",
		examples:    []string{"flaky test", "intermittent failure", "passed on retry"},
		keywords:    []string{"flaky", "intermittent", "passed on retry"},
		suggestions: []string{"quarantine the flaky test", "add retries with backoff", "investigate shared test state"},
	},
	{
		errType:     models.ErrorTypeInfraError,
		description: "the CI runner or platform infrastructure itself failed",
		examples:    []string{"runner lost communication", "internal server error from CI provider", "pod evicted"},
		keywords:    []string{"runner lost", "internal server error", "pod evicted", "infrastructure"},
		suggestions: []string{"re-run the job", "check the CI provider's status page"},
	},
	{
		errType:     models.ErrorTypeSecurityScanFail,
		description: "a security or vulnerability scan found a blocking issue",
		examples:    []string{"vulnerability found", "CVE detected", "security scan failed"},
		keywords:    []string{"vulnerability", "cve-", "security scan"},
		suggestions: []string{"review the flagged CVE/vulnerability", "upgrade the affected dependency"},
	},
}

// DefaultConfidenceThreshold is the semantic path's minimum accepted
// score before falling back to UNKNOWN (§4.N.1).
const DefaultConfidenceThreshold = 0.5

// Classifier assigns a canonical ErrorType to raw CI error text.
type Classifier struct {
	Embedder            Embedder // nil disables the semantic path
	ConfidenceThreshold  float64
	centroids            map[models.ErrorType][]float64
}

// NewClassifier builds a Classifier. A nil embedder makes every call use
// the keyword fallback path.
func NewClassifier(embedder Embedder) *Classifier {
	c := &Classifier{Embedder: embedder, ConfidenceThreshold: DefaultConfidenceThreshold}
	if embedder != nil {
		c.centroids = make(map[models.ErrorType][]float64, len(patterns))
		for _, p := range patterns {
			texts := append([]string{p.description}, p.examples...)
			var sum []float64
			for _, text := range texts {
				vec, err := embedder.Embed(context.Background(), text)
				if err != nil {
					sum = nil
					break
				}
				if sum == nil {
					sum = make([]float64, len(vec))
				}
				for i, v := range vec {
					sum[i] += v
				}
			}
			if sum != nil {
				for i := range sum {
					sum[i] /= float64(len(texts))
				}
				c.centroids[p.errType] = sum
			}
		}
	}
	return c
}

// Classify implements adapters.ErrorClassifier: it assigns a canonical
// ErrorType to errorText along with confidence, the matched pattern name,
// and curated suggestions.
func (c *Classifier) Classify(ctx context.Context, errorText string) (models.ErrorType, float64, string, []string) {
	if c.Embedder != nil && len(c.centroids) > 0 {
		if errType, confidence, matched, ok := c.classifySemantic(ctx, errorText); ok {
			return errType, confidence, matched, suggestionsFor(errType)
		}
	}
	return c.classifyKeyword(errorText)
}

func (c *Classifier) classifySemantic(ctx context.Context, errorText string) (models.ErrorType, float64, string, bool) {
	vec, err := c.Embedder.Embed(ctx, errorText)
	if err != nil {
		return "", 0, "", false
	}

	var bestType models.ErrorType = models.ErrorTypeUnknown
	bestScore := -2.0
	for _, p := range patterns {
		centroid, ok := c.centroids[p.errType]
		if !ok {
			continue
		}
		sim := cosineSimilarity(vec, centroid)
		if sim > bestScore {
			bestScore = sim
			bestType = p.errType
		}
	}
	if bestScore < -1 {
		return "", 0, "", false
	}

	confidence := (bestScore + 1) / 2 // rescale [-1,1] -> [0,1]
	threshold := c.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if confidence < threshold {
		return models.ErrorTypeUnknown, confidence, "", true
	}
	return bestType, confidence, string(bestType), true
}

func (c *Classifier) classifyKeyword(errorText string) (models.ErrorType, float64, string, []string) {
	lower := strings.ToLower(errorText)

	var bestType models.ErrorType = models.ErrorTypeUnknown
	bestCount := 0
	bestKeyword := ""
	for _, p := range patterns {
		count := 0
		matched := ""
		for _, kw := range p.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				count++
				if matched == "" {
					matched = kw
				}
			}
		}
		if count > bestCount {
			bestCount = count
			bestType = p.errType
			bestKeyword = matched
		}
	}
	if bestCount == 0 {
		return models.ErrorTypeUnknown, 0, "", nil
	}
	confidence := 0.3 + 0.1*float64(bestCount)
	if confidence > 0.7 {
		confidence = 0.7
	}
	return bestType, confidence, bestKeyword, suggestionsFor(bestType)
}

func suggestionsFor(errType models.ErrorType) []string {
	for _, p := range patterns {
		if p.errType == errType {
			return p.suggestions
		}
	}
	return nil
}
