package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlya/merlya-core/pkg/ci/models"
)

type fakeMemory struct {
	incidents []Incident
	skills    []Skill
}

func (m *fakeMemory) RecordIncident(ctx context.Context, incident Incident) error {
	m.incidents = append(m.incidents, incident)
	return nil
}
func (m *fakeMemory) FindSimilar(ctx context.Context, symptoms []string, limit int) ([]Incident, error) {
	return m.incidents, nil
}
func (m *fakeMemory) AddSkill(ctx context.Context, skill Skill) error {
	m.skills = append(m.skills, skill)
	return nil
}
func (m *fakeMemory) SearchSkills(ctx context.Context, tags []string, query string) ([]Skill, error) {
	var out []Skill
	for _, s := range m.skills {
		if len(tags) == 0 {
			out = append(out, s)
			continue
		}
		if hasTag(s, tags[0]) {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestLearningRouterRecordFailureAndResolution(t *testing.T) {
	mem := &fakeMemory{}
	router := NewLearningRouter(mem)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	run := models.Run{ID: "42"}
	analysis := models.FailureAnalysis{ErrorType: models.ErrorTypeTestFailure, FailedJobs: []string{"build"}, Summary: "assertion failed expected one got two"}

	id, err := router.RecordFailure(context.Background(), run, analysis, "github", now)
	require.NoError(t, err)
	assert.Equal(t, "ci-42-20260102030405", id)
	assert.Len(t, mem.incidents, 1)
	assert.Equal(t, 1, router.PendingCount())

	err = router.RecordResolution(context.Background(), id, "fixed the assertion", []string{"go test ./...", "go vet ./..."}, "github")
	require.NoError(t, err)
	assert.Equal(t, 0, router.PendingCount())
	require.Len(t, mem.skills, 1)
	assert.Equal(t, "go test ./... && go vet ./...", mem.skills[0].Solution)
	assert.Contains(t, mem.skills[0].Tags, "ci/github")
}

func TestLearningRouterFIFOEviction(t *testing.T) {
	mem := &fakeMemory{}
	router := NewLearningRouter(mem)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i := 0; i < maxPendingIncidents+5; i++ {
		run := models.Run{ID: "run"}
		analysis := models.FailureAnalysis{ErrorType: models.ErrorTypeUnknown}
		_, err := router.RecordFailure(context.Background(), run, analysis, "github", now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	assert.Equal(t, maxPendingIncidents, router.PendingCount())
}

func TestLearningRouterSuggestFixPrefersPlatformTag(t *testing.T) {
	mem := &fakeMemory{skills: []Skill{
		{Trigger: "t", Solution: "generic fix", Tags: []string{"ci/gitlab"}},
		{Trigger: "t", Solution: "github fix", Tags: []string{"ci/github"}},
	}}
	router := NewLearningRouter(mem)
	fix, err := router.SuggestFix(context.Background(), models.FailureAnalysis{ErrorType: models.ErrorTypeTestFailure}, "github")
	require.NoError(t, err)
	assert.Equal(t, "github fix", fix)
}
