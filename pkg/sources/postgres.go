package sources

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresConnector probes a Postgres database over database/sql using
// lib/pq, the same driver the teacher's pkg/database client wires for its
// own ent/pgx-backed store's raw-SQL escape hatches.
type PostgresConnector struct {
	dsn string
	db  *sql.DB
}

// NewPostgresConnector opens (lazily; database/sql defers the actual
// connection) a Postgres connector for dsn.
func NewPostgresConnector(dsn string) (*PostgresConnector, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sources: open postgres: %w", err)
	}
	return &PostgresConnector{dsn: dsn, db: db}, nil
}

// Kind reports KindPostgres.
func (c *PostgresConnector) Kind() Kind { return KindPostgres }

// Ping verifies the connection is reachable within ctx's deadline.
func (c *PostgresConnector) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sources: postgres ping: %w", err)
	}
	return nil
}

// Introspect lists user tables and a row-count estimate from
// pg_stat_user_tables, mirroring the lightweight schema summary the
// original's connector reports back to the knowledge store.
func (c *PostgresConnector) Introspect(ctx context.Context) (*Introspection, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT relname, n_live_tup
		FROM pg_stat_user_tables
		ORDER BY relname`)
	if err != nil {
		return nil, fmt.Errorf("sources: postgres introspect: %w", err)
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var name string
		var estimate int64
		if err := rows.Scan(&name, &estimate); err != nil {
			return nil, fmt.Errorf("sources: postgres scan row: %w", err)
		}
		tables = append(tables, TableInfo{Name: name, RowEstimate: estimate})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sources: postgres rows: %w", err)
	}

	var dbName string
	_ = c.db.QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName)

	return &Introspection{Kind: KindPostgres, Database: dbName, Tables: tables, ProbedAt: time.Now()}, nil
}

// Close releases the underlying connection pool.
func (c *PostgresConnector) Close() error { return c.db.Close() }
