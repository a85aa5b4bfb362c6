package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/core"
)

var (
	_ core.EscalationStore  = (*SQLiteStore)(nil)
	_ core.DecisionRecorder = (*SQLiteStore)(nil)
)

// CreateEscalation records a new pending request and returns its id.
func (s *SQLiteStore) CreateEscalation(ctx context.Context, req core.PendingRequest) (string, error) {
	id, err := s.createEscalation(ctx, s.db, req)
	if err != nil {
		return "", err
	}
	return id, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) createEscalation(ctx context.Context, ex execer, req core.PendingRequest) (string, error) {
	req = normalizePendingRequest(req)

	traceJSON, err := json.Marshal(req.Trace)
	if err != nil {
		return "", fmt.Errorf("encoding decision trace: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
INSERT INTO pending_requests (
  request_id, agent_id, action, resource, reason,
  decision_trace, action_required, created_at_unix, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, req.RequestID, req.AgentID, req.Action, req.Resource, req.Reason,
		string(traceJSON), req.ActionRequired, req.CreatedAt.Unix(), string(req.Status))
	if err != nil {
		return "", fmt.Errorf("creating escalation: %w", err)
	}
	return req.RequestID, nil
}

// GetEscalation looks up one request by id.
func (s *SQLiteStore) GetEscalation(ctx context.Context, requestID string) (core.PendingRequest, bool, error) {
	var (
		req           core.PendingRequest
		traceJSON     string
		createdAtUnix int64
		status        string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT request_id, agent_id, action, resource, reason,
       decision_trace, action_required, created_at_unix, status
FROM pending_requests WHERE request_id = ?
`, requestID).Scan(&req.RequestID, &req.AgentID, &req.Action, &req.Resource, &req.Reason,
		&traceJSON, &req.ActionRequired, &createdAtUnix, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PendingRequest{}, false, nil
	}
	if err != nil {
		return core.PendingRequest{}, false, fmt.Errorf("reading escalation %q: %w", requestID, err)
	}

	if err := json.Unmarshal([]byte(traceJSON), &req.Trace); err != nil {
		return core.PendingRequest{}, false, fmt.Errorf("decoding decision trace of %q: %w", requestID, err)
	}
	req.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	req.Status = core.EscalationStatus(status)
	return req, true, nil
}

// ListPending returns all unresolved requests, oldest first.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]core.PendingRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT request_id, agent_id, action, resource, reason,
       decision_trace, action_required, created_at_unix, status
FROM pending_requests WHERE status = ? ORDER BY created_at_unix
`, string(core.EscalationPending))
	if err != nil {
		return nil, fmt.Errorf("listing pending escalations: %w", err)
	}
	defer rows.Close()

	var reqs []core.PendingRequest
	for rows.Next() {
		var (
			req           core.PendingRequest
			traceJSON     string
			createdAtUnix int64
			status        string
		)
		if err := rows.Scan(&req.RequestID, &req.AgentID, &req.Action, &req.Resource, &req.Reason,
			&traceJSON, &req.ActionRequired, &createdAtUnix, &status); err != nil {
			return nil, fmt.Errorf("scanning escalation row: %w", err)
		}
		if err := json.Unmarshal([]byte(traceJSON), &req.Trace); err != nil {
			return nil, fmt.Errorf("decoding decision trace of %q: %w", req.RequestID, err)
		}
		req.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		req.Status = core.EscalationStatus(status)
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// RecordDecision writes the audit entry and the optional escalation record
// in one transaction.
func (s *SQLiteStore) RecordDecision(ctx context.Context, entry core.LogEntry, pending *core.PendingRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning decision transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	entry = normalizeLogEntry(entry)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO logs (id, agent_id, action, resource, result, timestamp_unix) VALUES (?, ?, ?, ?, ?, ?)
`, entry.ID, entry.AgentID, entry.Action, entry.Resource, entry.Result, entry.Timestamp.Unix()); err != nil {
		return fmt.Errorf("appending audit log entry: %w", err)
	}

	if pending != nil {
		if _, err := s.createEscalation(ctx, tx, *pending); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ResolveEscalation flips status pending -> resolved with a conditional
// update and appends the audit entry in the same transaction. Losing a
// resolution race, or resolving an unknown id, returns
// core.ErrEscalationNotPending with nothing written.
func (s *SQLiteStore) ResolveEscalation(ctx context.Context, requestID string, trace []core.TraceEntry, entry core.LogEntry) error {
	traceJSON, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("encoding decision trace: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning resolve transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
UPDATE pending_requests SET status = ?, decision_trace = ?
WHERE request_id = ? AND status = ?
`, string(core.EscalationResolved), string(traceJSON), requestID, string(core.EscalationPending))
	if err != nil {
		return fmt.Errorf("resolving escalation %q: %w", requestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("escalation %q: %w", requestID, core.ErrEscalationNotPending)
	}

	entry = normalizeLogEntry(entry)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO logs (id, agent_id, action, resource, result, timestamp_unix) VALUES (?, ?, ?, ?, ?, ?)
`, entry.ID, entry.AgentID, entry.Action, entry.Resource, entry.Result, entry.Timestamp.Unix()); err != nil {
		return fmt.Errorf("appending audit log entry: %w", err)
	}
	return tx.Commit()
}

func normalizePendingRequest(req core.PendingRequest) core.PendingRequest {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.ActionRequired == "" {
		req.ActionRequired = core.ActionHumanIntervention
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Status = core.EscalationPending
	return req
}
