package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySimpleStatusCheck(t *testing.T) {
	r := Classify("check mongo status")

	assert.Equal(t, ComplexitySimple, r.Complexity)
	assert.Equal(t, StrategyDirect, r.Strategy)
	assert.False(t, r.ShowThinking)
	assert.Equal(t, 2, r.EstimatedSteps)
	assert.Equal(t, 5, r.EstimatedDurationS)
	assert.False(t, r.NeedsReformulation)
}

func TestClassifyVagueRequestNeedsReformulation(t *testing.T) {
	r := Classify("make analysis")

	assert.True(t, r.NeedsReformulation)
	assert.True(t, strings.HasPrefix(r.SuggestedPrompt, "Perform comprehensive analysis"))
}

func TestClassifyMultiTargetForcesVerbose(t *testing.T) {
	r := Classify("check status on all servers")

	assert.True(t, strings.Contains(r.Reasoning, "Multi-target detected"))
	assert.Equal(t, StrategyCoTVerbose, r.Strategy)
	assert.True(t, r.ShowThinking)
}

func TestClassifyComplexAnalysis(t *testing.T) {
	r := Classify("analyze nginx performance")

	assert.Equal(t, ComplexityComplex, r.Complexity)
	assert.Equal(t, StrategyCoTVerbose, r.Strategy)
	assert.True(t, r.ShowThinking)
}

func TestClassifyModerateUnderFourStepsIsSilent(t *testing.T) {
	r := Classify("verify disk space")

	assert.Equal(t, ComplexityModerate, r.Complexity)
	assert.Equal(t, StrategyCoTSilent, r.Strategy)
	assert.False(t, r.ShowThinking)
}

func TestClassifyNoKeywordMatchDefaultsToModerate(t *testing.T) {
	r := Classify("xyzzy plugh")
	assert.Equal(t, ComplexityModerate, r.Complexity)
}

func TestEstimateStepsCapsAtTwelve(t *testing.T) {
	steps := estimateSteps(ComplexityComplex, true) // 8 * 1.5 = 12
	assert.Equal(t, 12, steps)
}

func TestCacheFIFOEviction(t *testing.T) {
	c := NewCache(2)
	c.Put("first request", Result{Complexity: ComplexitySimple})
	c.Put("second request", Result{Complexity: ComplexityModerate})
	c.Put("third request", Result{Complexity: ComplexityComplex}) // evicts "first request"

	_, ok := c.Get("first request")
	assert.False(t, ok)

	_, ok = c.Get("second request")
	assert.True(t, ok)

	_, ok = c.Get("third request")
	assert.True(t, ok)
}

func TestCacheNormalizesKey(t *testing.T) {
	c := NewCache(10)
	c.Put("  Check Mongo Status  ", Result{Complexity: ComplexitySimple})

	_, ok := c.Get("check mongo status")
	assert.True(t, ok)
}
