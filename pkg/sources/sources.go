// Package sources discovers and remembers the databases a host exposes,
// supplementing spec.md §6's registry.json mention with the connector
// discovery operation documented only in
// _examples/original_source/athena_ai (SPEC_FULL §5.1).
package sources

import (
	"context"
	"errors"
	"time"
)

// ErrDriverUnavailable is returned by connectors whose underlying driver
// isn't part of this module's dependency stack.
var ErrDriverUnavailable = errors.New("sources: driver unavailable")

// Kind identifies the database engine a Connector speaks to.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindMongo    Kind = "mongo"
)

// TableInfo is one introspected table or collection.
type TableInfo struct {
	Name        string   `json:"name"`
	Columns     []string `json:"columns,omitempty"`
	RowEstimate int64    `json:"row_estimate,omitempty"`
}

// Introspection is the result of probing a data source's schema.
type Introspection struct {
	Kind      Kind        `json:"kind"`
	Database  string      `json:"database"`
	Tables    []TableInfo `json:"tables"`
	ProbedAt  time.Time   `json:"probed_at"`
}

// Connector is one discoverable data source backend. Ping verifies
// reachability; Introspect enumerates its schema for the registry.
type Connector interface {
	Kind() Kind
	Ping(ctx context.Context) error
	Introspect(ctx context.Context) (*Introspection, error)
}

// Source is a discovered data source persisted in the registry, keyed by
// host+kind so rediscovery on the same host updates rather than
// duplicates the entry.
type Source struct {
	Host          string    `json:"host"`
	Kind          Kind      `json:"kind"`
	DSN           string    `json:"dsn,omitempty"`
	Database      string    `json:"database"`
	Tables        []string  `json:"tables,omitempty"`
	LastSeen      time.Time `json:"last_seen"`
	LastError     string    `json:"last_error,omitempty"`
}

// Stale reports whether the entry is older than ttl, matching the
// original's 24-hour rediscovery window.
func (s Source) Stale(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastSeen) > ttl
}
