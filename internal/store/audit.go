package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/core"
)

var _ core.AuditLog = (*SQLiteStore)(nil)

// Append writes one immutable log row.
func (s *SQLiteStore) Append(ctx context.Context, entry core.LogEntry) error {
	entry = normalizeLogEntry(entry)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO logs (id, agent_id, action, resource, result, timestamp_unix) VALUES (?, ?, ?, ?, ?, ?)
`, entry.ID, entry.AgentID, entry.Action, entry.Resource, entry.Result, entry.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("appending audit log entry: %w", err)
	}
	return nil
}

// Query returns matching rows ordered by timestamp descending.
func (s *SQLiteStore) Query(ctx context.Context, filter core.LogFilter) ([]core.LogEntry, error) {
	q := `SELECT id, agent_id, action, resource, result, timestamp_unix FROM logs WHERE 1=1`
	var args []any

	if filter.AgentID != "" {
		q += ` AND agent_id = ?`
		args = append(args, filter.AgentID)
	}
	if !filter.StartTime.IsZero() {
		q += ` AND timestamp_unix >= ?`
		args = append(args, filter.StartTime.Unix())
	}
	if !filter.EndTime.IsZero() {
		q += ` AND timestamp_unix <= ?`
		args = append(args, filter.EndTime.Unix())
	}
	q += ` ORDER BY timestamp_unix DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []core.LogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanLogEntry(rows *sql.Rows) (core.LogEntry, error) {
	var (
		entry         core.LogEntry
		timestampUnix int64
	)
	if err := rows.Scan(&entry.ID, &entry.AgentID, &entry.Action, &entry.Resource, &entry.Result, &timestampUnix); err != nil {
		return core.LogEntry{}, fmt.Errorf("scanning audit log row: %w", err)
	}
	entry.Timestamp = time.Unix(timestampUnix, 0).UTC()
	return entry, nil
}

func normalizeLogEntry(entry core.LogEntry) core.LogEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return entry
}
