package skills

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Match is one scored hit from MatchIntent.
type Match struct {
	Skill      *Config
	Confidence float64
}

// Registry is a process-wide name-keyed skill catalog.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Config
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide singleton registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
	})
	return defaultReg
}

// NewRegistry creates an empty registry. Most callers want Default().
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]*Config)}
}

// Register adds or replaces skill. Overwriting an existing entry is logged
// at warn level, matching the loader's builtin-then-user merge contract.
func (r *Registry) Register(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.skills[cfg.Name]; exists {
		slog.Warn("skill overwritten on registration", "skill", cfg.Name, "source", cfg.SourcePath)
	}
	r.skills[cfg.Name] = cfg
}

// Get returns the named skill, or false if not registered.
func (r *Registry) Get(name string) (*Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.skills[name]
	return cfg, ok
}

// All returns every registered skill, sorted by name.
func (r *Registry) All() []*Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Config, 0, len(r.skills))
	for _, cfg := range r.skills {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MatchIntent scores every skill whose intent_patterns search text, sorted
// by confidence descending.
func (r *Registry) MatchIntent(text string) []Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inputLen := len(text)
	if inputLen == 0 {
		return nil
	}

	var matches []Match
	for _, cfg := range r.skills {
		best := -1
		for _, re := range cfg.compiled {
			loc := re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			matchLen := loc[1] - loc[0]
			if matchLen > best {
				best = matchLen
			}
		}
		if best < 0 {
			continue
		}
		confidence := float64(best)/float64(inputLen) + 0.3
		if confidence > 1.0 {
			confidence = 1.0
		}
		matches = append(matches, Match{Skill: cfg, Confidence: confidence})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return strings.Compare(matches[i].Skill.Name, matches[j].Skill.Name) < 0
	})
	return matches
}

func resetDefaultForTest() {
	defaultOnce = sync.Once{}
	defaultReg = nil
}
