package conversation

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register the "sqlite" database/sql driver, pure Go (no cgo)
)

//go:embed migrations
var migrationsFS embed.FS

// SQLiteStore is the relational conversation store backend, per spec §4.O:
// tables conversations/messages with a foreign key and an index on
// messages.conversation_id. Connections are opened per method call
// (context-managed) rather than held open across calls.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) the sqlite database at path and
// applies pending migrations from the embedded migrations directory.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: ping %s: %w", path, err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite store: open embedded migrations: %w", err)
	}
	src, err := iofs.New(sourceFS, ".")
	if err != nil {
		return fmt.Errorf("sqlite store: iofs source: %w", err)
	}
	driver, err := newSQLiteMigrateDriver(db)
	if err != nil {
		return fmt.Errorf("sqlite store: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("sqlite store: build migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("sqlite store: apply migrations: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// withConn runs fn against a single connection with PRAGMA foreign_keys=ON
// set, per spec §4.O ("PRAGMA foreign_keys=ON" on every context-managed
// connection).
func (s *SQLiteStore) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("sqlite store: enable foreign keys: %w", err)
	}
	return fn(conn)
}

// SaveConversation upserts c's row, stamping UpdatedAt (and CreatedAt if
// unset).
func (s *SQLiteStore) SaveConversation(ctx context.Context, c *Conversation) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.UpdatedAt = time.Now()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = c.UpdatedAt
		}
		_, err := conn.ExecContext(ctx, `
			INSERT INTO conversations (id, title, created_at, updated_at, token_count, compacted, is_current)
			VALUES (?, ?, ?, ?, ?, ?, 0)
			ON CONFLICT(id) DO UPDATE SET
				title=excluded.title, updated_at=excluded.updated_at,
				token_count=excluded.token_count, compacted=excluded.compacted
		`, c.ID, c.Title, c.CreatedAt.Unix(), c.UpdatedAt.Unix(), c.TokenCount, boolToInt(c.Compacted))
		if err != nil {
			return fmt.Errorf("sqlite store: save conversation %s: %w", c.ID, err)
		}
		return nil
	})
}

// SaveMessage inserts m and bumps conversationID's token_count/updated_at.
func (s *SQLiteStore) SaveMessage(ctx context.Context, conversationID string, m Message) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite store: save message begin tx: %w", err)
		}
		defer tx.Rollback()

		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, timestamp, tokens)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, conversationID, string(m.Role), m.Content, m.Timestamp.Unix(), m.Tokens)
		if err != nil {
			return fmt.Errorf("sqlite store: save message: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE conversations SET token_count = token_count + ?, updated_at = ? WHERE id = ?
		`, m.Tokens, time.Now().Unix(), conversationID)
		if err != nil {
			return fmt.Errorf("sqlite store: bump conversation totals: %w", err)
		}
		return tx.Commit()
	})
}

// LoadConversation reads id's row plus all its messages, ordered by
// timestamp.
func (s *SQLiteStore) LoadConversation(ctx context.Context, id string) (*Conversation, error) {
	var out *Conversation
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		c, err := loadConversationRow(ctx, conn, id)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func loadConversationRow(ctx context.Context, conn *sql.Conn, id string) (*Conversation, error) {
	row := conn.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at, token_count, compacted FROM conversations WHERE id = ?
	`, id)

	var c Conversation
	var createdAt, updatedAt int64
	var compacted int
	if err := row.Scan(&c.ID, &c.Title, &createdAt, &updatedAt, &c.TokenCount, &compacted); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite store: load conversation %s: %w", id, err)
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	c.Compacted = compacted != 0

	rows, err := conn.QueryContext(ctx, `
		SELECT id, role, content, timestamp, tokens FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: load messages for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		var ts int64
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &ts, &m.Tokens); err != nil {
			return nil, fmt.Errorf("sqlite store: scan message row: %w", err)
		}
		m.ConversationID = id
		m.Timestamp = time.Unix(ts, 0).UTC()
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

// LoadCurrent returns the conversation flagged is_current.
func (s *SQLiteStore) LoadCurrent(ctx context.Context) (*Conversation, error) {
	var id string
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `SELECT id FROM conversations WHERE is_current = 1 LIMIT 1`)
		return row.Scan(&id)
	})
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: load current: %w", err)
	}
	return s.LoadConversation(ctx, id)
}

// SetCurrent clears is_current on every row, then sets it on id, in a
// single transaction — the spec's explicit invariant for "at most one
// current conversation".
func (s *SQLiteStore) SetCurrent(ctx context.Context, id string) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite store: set current begin tx: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `UPDATE conversations SET is_current = 0`); err != nil {
			return fmt.Errorf("sqlite store: clear is_current: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE conversations SET is_current = 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite store: set is_current: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return tx.Commit()
	})
}

// Archive marks id compacted.
func (s *SQLiteStore) Archive(ctx context.Context, id string) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `UPDATE conversations SET compacted = 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite store: archive %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes id's row; ON DELETE CASCADE removes its messages.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite store: delete %s: %w", id, err)
		}
		return nil
	})
}

// ListAll returns every conversation with its messages, ordered by
// created_at.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]*Conversation, error) {
	var ids []string
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id FROM conversations ORDER BY created_at ASC`)
		if err != nil {
			return fmt.Errorf("sqlite store: list all: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	out := make([]*Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := s.LoadConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ExportConversation marshals id's full record to JSON.
func (s *SQLiteStore) ExportConversation(ctx context.Context, id string) ([]byte, error) {
	c, err := s.LoadConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return marshalConversation(c)
}

// ImportConversation decodes data and inserts it (and its messages),
// reassigning the id on collision.
func (s *SQLiteStore) ImportConversation(ctx context.Context, data []byte) (*Conversation, error) {
	c, err := unmarshalConversationChecked(ctx, s, data)
	if err != nil {
		return nil, err
	}
	if err := s.SaveConversation(ctx, c); err != nil {
		return nil, err
	}
	for _, m := range c.Messages {
		if err := s.SaveMessage(ctx, c.ID, m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func unmarshalConversationChecked(ctx context.Context, s *SQLiteStore, data []byte) (*Conversation, error) {
	return unmarshalConversation(data, func(id string) bool {
		_, err := s.LoadConversation(ctx, id)
		return err == nil
	})
}

// ExportAll marshals every stored conversation to a single JSON array.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]byte, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return marshalAll(all)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
