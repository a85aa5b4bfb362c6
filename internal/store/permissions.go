package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/condition"
	"github.com/arbiterhq/arbiter/internal/core"
)

var _ core.PermissionMatcher = (*SQLiteStore)(nil)

// HasPermission reports whether any rule matches the exact triple.
// Stored condition text is deliberately ignored here; see the condition
// package for the write-time validation that keeps it parseable.
func (s *SQLiteStore) HasPermission(ctx context.Context, agentID, action, resource string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
SELECT 1 FROM permissions WHERE agent_id = ? AND action = ? AND resource = ? LIMIT 1
`, agentID, action, resource).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("matching permission: %w", err)
	}
	return true, nil
}

// CreatePermission stores a new rule. The agent must exist and any
// condition text must compile.
func (s *SQLiteStore) CreatePermission(ctx context.Context, perm core.Permission) (*core.Permission, error) {
	if strings.TrimSpace(perm.AgentID) == "" {
		return nil, fmt.Errorf("permission agent_id is required")
	}
	if strings.TrimSpace(perm.Action) == "" {
		return nil, fmt.Errorf("permission action is required")
	}
	if strings.TrimSpace(perm.Resource) == "" {
		return nil, fmt.Errorf("permission resource is required")
	}
	if err := condition.Validate(perm.Condition); err != nil {
		return nil, err
	}
	if _, err := s.GetAgent(ctx, perm.AgentID); err != nil {
		return nil, err
	}
	if perm.ID == "" {
		perm.ID = uuid.NewString()
	}

	var cond any
	if perm.Condition != "" {
		cond = perm.Condition
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO permissions (id, agent_id, action, resource, condition) VALUES (?, ?, ?, ?, ?)
`, perm.ID, perm.AgentID, perm.Action, perm.Resource, cond)
	if err != nil {
		return nil, fmt.Errorf("creating permission: %w", err)
	}
	return &perm, nil
}

// ListPermissions returns all rules for one agent.
func (s *SQLiteStore) ListPermissions(ctx context.Context, agentID string) ([]core.Permission, error) {
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, agent_id, action, resource, condition FROM permissions WHERE agent_id = ?
`, agentID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// AllPermissions returns every stored rule, used by `permissions vet`.
func (s *SQLiteStore) AllPermissions(ctx context.Context) ([]core.Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, agent_id, action, resource, condition FROM permissions
`)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

// DeletePermission removes a single rule by id.
func (s *SQLiteStore) DeletePermission(ctx context.Context, permissionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = ?`, permissionID)
	if err != nil {
		return fmt.Errorf("deleting permission %q: %w", permissionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("permission %q not found", permissionID)
	}
	return nil
}

func scanPermissions(rows *sql.Rows) ([]core.Permission, error) {
	var perms []core.Permission
	for rows.Next() {
		var (
			perm core.Permission
			cond sql.NullString
		)
		if err := rows.Scan(&perm.ID, &perm.AgentID, &perm.Action, &perm.Resource, &cond); err != nil {
			return nil, fmt.Errorf("scanning permission row: %w", err)
		}
		perm.Condition = cond.String
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}
