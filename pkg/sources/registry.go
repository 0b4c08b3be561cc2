package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultTTL matches the original knowledge store's rediscovery window:
// a source not re-probed within a day is considered stale.
const DefaultTTL = 24 * time.Hour

// Registry persists discovered Sources to a single JSON file, keyed by
// "host:kind", using the same load-modify-rewrite-whole-file contract as
// the original's KnowledgeStore: every mutation reads the current file,
// updates one entry, and atomically rewrites it.
type Registry struct {
	path string
	ttl  time.Duration

	mu      sync.Mutex
	sources map[string]Source
}

type registryFile struct {
	Sources map[string]Source `json:"sources"`
}

// NewRegistry loads (or creates) the registry file at path.
func NewRegistry(path string, ttl time.Duration) (*Registry, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Registry{path: path, ttl: ttl, sources: map[string]Source{}}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func key(host string, kind Kind) string { return host + ":" + string(kind) }

func (r *Registry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("sources: load registry: %w", err)
	}
	var f registryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("sources: decode registry: %w", err)
	}
	if f.Sources != nil {
		r.sources = f.Sources
	}
	return nil
}

func (r *Registry) saveLocked() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sources: create registry dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(registryFile{Sources: r.sources}, "", "  ")
	if err != nil {
		return fmt.Errorf("sources: encode registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("sources: write registry: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// Record upserts a discovery result for host+kind, merging it into the
// registry file without disturbing other hosts' entries.
func (r *Registry) Record(host string, kind Kind, intro *Introspection, dsn string, discoveryErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}

	s := Source{Host: host, Kind: kind, DSN: dsn, LastSeen: time.Now()}
	if intro != nil {
		s.Database = intro.Database
		for _, t := range intro.Tables {
			s.Tables = append(s.Tables, t.Name)
		}
	}
	if discoveryErr != nil {
		s.LastError = discoveryErr.Error()
	}
	r.sources[key(host, kind)] = s
	return r.saveLocked()
}

// Get returns the entry for host+kind, and whether it exists and is
// still fresh per the registry's TTL.
func (r *Registry) Get(host string, kind Kind) (Source, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sources[key(host, kind)]
	if !ok {
		return Source{}, false
	}
	return s, !s.Stale(r.ttl, time.Now())
}

// All returns every known source, stale or not.
func (r *Registry) All() []Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out
}

// NeedsDiscovery reports whether host+kind has never been seen or is
// older than the registry's TTL.
func (r *Registry) NeedsDiscovery(host string, kind Kind) bool {
	_, fresh := r.Get(host, kind)
	return !fresh
}
