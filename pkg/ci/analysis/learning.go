package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/merlya/merlya-core/pkg/ci/models"
)

// Incident is the pending-failure record the learning router writes
// through to the external knowledge memory on every classified failure.
type Incident struct {
	ID         string
	RunID      string
	Platform   string
	Symptoms   []string
	Summary    string
	CreatedAt  time.Time
}

// Skill is a learned problem/solution pair the router records once a
// failure's resolution is known.
type Skill struct {
	Trigger  string
	Solution string
	Tags     []string
}

// Memory is core's narrow contract onto the external incident/skill
// knowledge graph, per spec §1: "the core uses only its narrow
// record_incident / find_similar / add_skill / search_skills interface".
type Memory interface {
	RecordIncident(ctx context.Context, incident Incident) error
	FindSimilar(ctx context.Context, symptoms []string, limit int) ([]Incident, error)
	AddSkill(ctx context.Context, skill Skill) error
	SearchSkills(ctx context.Context, tags []string, query string) ([]Skill, error)
}

const (
	maxPendingIncidents = 100
	pendingIncidentTTL  = 24 * time.Hour
)

// LearningRouter bridges CI failure analysis to the external knowledge
// memory: recording pending incidents, resolving them into skills, and
// suggesting fixes from prior resolutions (§4.N).
type LearningRouter struct {
	memory Memory

	mu      sync.Mutex
	pending map[string]Incident // incidentID -> incident
	order   []string            // incidentID insertion order, for FIFO eviction
}

// NewLearningRouter builds a router over memory.
func NewLearningRouter(memory Memory) *LearningRouter {
	return &LearningRouter{memory: memory, pending: make(map[string]Incident)}
}

// RecordFailure creates a pending incident for a classified run failure,
// first dropping pending entries older than 24h and then, if the
// 100-entry cap is still reached, evicting the oldest pending entry
// (FIFO) whatever its age, then writes through to the knowledge memory.
func (r *LearningRouter) RecordFailure(ctx context.Context, run models.Run, analysis models.FailureAnalysis, platform string, now time.Time) (string, error) {
	id := fmt.Sprintf("ci-%s-%s", run.ID, now.Format("20060102150405"))

	symptoms := append([]string{string(analysis.ErrorType)}, analysis.FailedJobs...)
	incident := Incident{
		ID:        id,
		RunID:     run.ID,
		Platform:  platform,
		Symptoms:  symptoms,
		Summary:   analysis.Summary,
		CreatedAt: now,
	}

	r.mu.Lock()
	r.evictExpiredLocked(now)
	if len(r.pending) >= maxPendingIncidents {
		r.evictOldestLocked()
	}
	r.pending[id] = incident
	r.order = append(r.order, id)
	r.mu.Unlock()

	if err := r.memory.RecordIncident(ctx, incident); err != nil {
		return id, fmt.Errorf("learning router: record incident %s: %w", id, err)
	}
	return id, nil
}

func (r *LearningRouter) evictExpiredLocked(now time.Time) {
	cutoff := now.Add(-pendingIncidentTTL)
	kept := r.order[:0]
	for _, id := range r.order {
		if inc, ok := r.pending[id]; ok && inc.CreatedAt.Before(cutoff) {
			delete(r.pending, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}

func (r *LearningRouter) evictOldestLocked() {
	if len(r.order) == 0 {
		return
	}
	oldest := r.order[0]
	r.order = r.order[1:]
	delete(r.pending, oldest)
}

// RecordResolution removes incidentID from the pending set and, when
// commands are supplied, stores a Skill whose trigger is derived from the
// error type, first failed job, and the first five words of the summary.
func (r *LearningRouter) RecordResolution(ctx context.Context, incidentID, resolution string, commands []string, platform string) error {
	r.mu.Lock()
	incident, ok := r.pending[incidentID]
	if ok {
		delete(r.pending, incidentID)
		for i, id := range r.order {
			if id == incidentID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok || len(commands) == 0 {
		return nil
	}

	firstJob := ""
	errType := ""
	if len(incident.Symptoms) > 0 {
		errType = incident.Symptoms[0]
	}
	if len(incident.Symptoms) > 1 {
		firstJob = incident.Symptoms[1]
	}
	summaryWords := strings.Fields(incident.Summary)
	if len(summaryWords) > 5 {
		summaryWords = summaryWords[:5]
	}
	trigger := strings.TrimSpace(strings.Join(append([]string{errType, firstJob}, summaryWords...), " "))

	skill := Skill{
		Trigger:  trigger,
		Solution: strings.Join(commands, " && "),
		Tags:     []string{"ci/" + platform},
	}
	if err := r.memory.AddSkill(ctx, skill); err != nil {
		return fmt.Errorf("learning router: add skill for %s: %w", incidentID, err)
	}
	return nil
}

// FindSimilarFailures queries the knowledge memory with the analysis's
// error type and failed job names as symptoms.
func (r *LearningRouter) FindSimilarFailures(ctx context.Context, analysis models.FailureAnalysis, platform string, limit int) ([]Incident, error) {
	symptoms := append([]string{string(analysis.ErrorType)}, analysis.FailedJobs...)
	return r.memory.FindSimilar(ctx, symptoms, limit)
}

// SuggestFix queries the skill store and returns the top match's
// solution, preferring skills tagged ci/{platform}.
func (r *LearningRouter) SuggestFix(ctx context.Context, analysis models.FailureAnalysis, platform string) (string, error) {
	tag := "ci/" + platform
	skills, err := r.memory.SearchSkills(ctx, []string{tag}, string(analysis.ErrorType))
	if err != nil {
		return "", fmt.Errorf("learning router: suggest fix: %w", err)
	}
	if len(skills) == 0 {
		skills, err = r.memory.SearchSkills(ctx, nil, string(analysis.ErrorType))
		if err != nil {
			return "", fmt.Errorf("learning router: suggest fix: %w", err)
		}
	}
	if len(skills) == 0 {
		return "", nil
	}

	sort.SliceStable(skills, func(i, j int) bool {
		return hasTag(skills[i], tag) && !hasTag(skills[j], tag)
	})
	return skills[0].Solution, nil
}

func hasTag(s Skill, tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PendingCount returns the number of incidents currently awaiting
// resolution. Test/observability helper.
func (r *LearningRouter) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
