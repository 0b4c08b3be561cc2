package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlya/merlya-core/pkg/classifier"
)

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, _, _, _ string) (string, error) {
	return f.response, f.err
}

func TestGeneratePlanFallsBackOnMalformedJSON(t *testing.T) {
	p := New(&fakeGenerator{response: "sorry, I cannot"})

	steps := p.GeneratePlan(context.Background(), strings.Repeat("fix the database replication lag urgently please", 2), classifier.ComplexityComplex, 10, "")

	require.Len(t, steps, 3)
	assert.True(t, strings.HasPrefix(steps[1].Description, "Execute: "))
	assert.LessOrEqual(t, len(steps[1].Description), len("Execute: ")+60)
}

func TestGeneratePlanFallsBackOnLLMError(t *testing.T) {
	p := New(&fakeGenerator{err: errors.New("provider unavailable")})

	steps := p.GeneratePlan(context.Background(), "restart the web tier", classifier.ComplexityModerate, 10, "")

	require.Len(t, steps, 3)
	assert.Equal(t, "Gather necessary information and context", steps[0].Description)
}

func TestGeneratePlanParsesFencedJSON(t *testing.T) {
	response := "```json\n" + `{"steps": [{"id": 1, "description": "Check connectivity"}, {"id": 2, "description": "Run diagnostics"}]}` + "\n```"
	p := New(&fakeGenerator{response: response})

	steps := p.GeneratePlan(context.Background(), "diagnose nginx", classifier.ComplexityModerate, 10, "")

	require.Len(t, steps, 2)
	assert.Equal(t, "Check connectivity", steps[0].Description)
	assert.Equal(t, 1000, steps[0].EstimatedTokens) // default applied
}

func TestGeneratePlanParsesBareArray(t *testing.T) {
	response := `[{"id": 1, "description": "Step one"}]`
	p := New(&fakeGenerator{response: response})

	steps := p.GeneratePlan(context.Background(), "anything", classifier.ComplexitySimple, 10, "")
	require.Len(t, steps, 1)
}

func TestValidatePlanTrimsAndRenumbers(t *testing.T) {
	steps := []Step{
		{ID: 5, Description: "a"},
		{ID: 9, Description: "b", Dependencies: []int{5, 99}},
		{ID: 1, Description: "c"},
	}

	validated := validatePlan(steps, 2)
	require.Len(t, validated, 2)
	assert.Equal(t, 1, validated[0].ID)
	assert.Equal(t, 2, validated[1].ID)
	assert.Equal(t, []int{1}, validated[1].Dependencies) // 99 dropped, 5 renumbered to 1
}

func TestValidatePlanFillsMissingFields(t *testing.T) {
	steps := []Step{{ID: 1}}
	validated := validatePlan(steps, 5)
	assert.Equal(t, "Step 1", validated[0].Description)
	assert.Equal(t, 1000, validated[0].EstimatedTokens)
}

func TestStripMarkdownFenceHandlesGenericFence(t *testing.T) {
	out := stripMarkdownFence("```\n{\"steps\": []}\n```")
	assert.Equal(t, `{"steps": []}`, out)
}
