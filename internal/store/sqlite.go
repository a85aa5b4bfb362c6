// Package store provides the persistent backing for the authorization gate:
// agents, permission rules, system flags, the audit log and escalation
// records, all in one sqlite database so a decision's writes share a
// transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/glebarez/go-sqlite"
)

// Options tune the sqlite connection.
type Options struct {
	// WAL enables write-ahead logging.
	WAL bool

	// BusyTimeoutMs is the sqlite busy timeout in milliseconds.
	BusyTimeoutMs int

	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool
}

// DefaultOptions are used by Open when the caller passes the zero value.
var DefaultOptions = Options{
	WAL:           true,
	BusyTimeoutMs: 5000,
	ForeignKeys:   true,
}

// SQLiteStore implements every storage port of the core over one database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn, applies pragmas and runs
// migrations. Use ":memory:" for an ephemeral database.
func Open(ctx context.Context, dsn string, opts Options) (*SQLiteStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	if opts == (Options{}) {
		opts = DefaultOptions
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.applyPragmas(ctx, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) applyPragmas(ctx context.Context, opts Options) error {
	if opts.WAL {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enabling WAL: %w", err)
		}
	}
	if opts.BusyTimeoutMs > 0 {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", opts.BusyTimeoutMs)); err != nil {
			return fmt.Errorf("setting busy_timeout: %w", err)
		}
	}
	if opts.ForeignKeys {
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
			return fmt.Errorf("enabling foreign_keys: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS agents (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  owner TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at_unix INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agents_owner ON agents(owner);

CREATE TABLE IF NOT EXISTS permissions (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
  action TEXT NOT NULL,
  resource TEXT NOT NULL,
  condition TEXT
);
CREATE INDEX IF NOT EXISTS idx_permissions_triple ON permissions(agent_id, action, resource);

CREATE TABLE IF NOT EXISTS system_state (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at_unix INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
  id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  action TEXT NOT NULL,
  resource TEXT NOT NULL,
  result TEXT NOT NULL,
  timestamp_unix INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_agent ON logs(agent_id);
CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp_unix);

CREATE TABLE IF NOT EXISTS pending_requests (
  request_id TEXT PRIMARY KEY,
  agent_id TEXT NOT NULL,
  action TEXT NOT NULL,
  resource TEXT NOT NULL,
  reason TEXT NOT NULL,
  decision_trace TEXT NOT NULL,
  action_required TEXT NOT NULL,
  created_at_unix INTEGER NOT NULL,
  status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pending_requests_status ON pending_requests(status);
`)
	if err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	// seed the kill switch to its default so an absent row and the explicit
	// value agree from first boot onwards
	return s.seedKillSwitch(ctx)
}
