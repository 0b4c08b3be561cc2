package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlya/merlya-core/pkg/ci/models"
)

func TestClassifyKeywordFallback(t *testing.T) {
	c := NewClassifier(nil)
	errType, confidence, _, _ := c.Classify(context.Background(), "npm ERR! Could not resolve dependency")
	assert.Equal(t, models.ErrorTypeDependencyError, errType)
	assert.GreaterOrEqual(t, confidence, 0.3)
	assert.LessOrEqual(t, confidence, 0.7)
}

func TestClassifyKeywordNoMatchIsUnknown(t *testing.T) {
	c := NewClassifier(nil)
	errType, confidence, _, _ := c.Classify(context.Background(), "the quick brown fox")
	assert.Equal(t, models.ErrorTypeUnknown, errType)
	assert.Equal(t, 0.0, confidence)
}

func TestClassifySemanticPath(t *testing.T) {
	c := NewClassifier(NewHeuristicEmbedder(0))
	errType, confidence, matched, suggestions := c.Classify(context.Background(), "assertion failed: expected 1 but got 2 in test suite")
	assert.Equal(t, models.ErrorTypeTestFailure, errType)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.NotEmpty(t, matched)
	assert.NotEmpty(t, suggestions)
}

func TestClassifySemanticBelowThresholdIsUnknown(t *testing.T) {
	c := NewClassifier(NewHeuristicEmbedder(0))
	c.ConfidenceThreshold = 1.1 // unreachable, forces UNKNOWN
	errType, _, _, _ := c.Classify(context.Background(), "assertion failed: expected 1 but got 2")
	assert.Equal(t, models.ErrorTypeUnknown, errType)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(nil, []float64{1}))
}
