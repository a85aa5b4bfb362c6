package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/core"
)

var _ core.AgentDirectory = (*SQLiteStore)(nil)

// GetAgent returns the agent with the given id or core.ErrAgentNotFound.
func (s *SQLiteStore) GetAgent(ctx context.Context, agentID string) (*core.Agent, error) {
	var (
		agent         core.Agent
		status        string
		createdAtUnix int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, name, owner, status, created_at_unix FROM agents WHERE id = ?
`, agentID).Scan(&agent.ID, &agent.Name, &agent.Owner, &status, &createdAtUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent %q: %w", agentID, core.ErrAgentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading agent %q: %w", agentID, err)
	}
	agent.Status = core.AgentStatus(status)
	agent.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	return &agent, nil
}

// CreateAgent registers a new agent. A missing id is generated; a missing
// status defaults to active.
func (s *SQLiteStore) CreateAgent(ctx context.Context, agent core.Agent) (*core.Agent, error) {
	if strings.TrimSpace(agent.Name) == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if strings.TrimSpace(agent.Owner) == "" {
		return nil, fmt.Errorf("agent owner is required")
	}
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.Status == "" {
		agent.Status = core.AgentActive
	}
	if !agent.Status.IsValid() {
		return nil, fmt.Errorf("invalid agent status %q", agent.Status)
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO agents (id, name, owner, status, created_at_unix) VALUES (?, ?, ?, ?, ?)
`, agent.ID, agent.Name, agent.Owner, string(agent.Status), agent.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	return &agent, nil
}

// ListAgents returns all agents ordered by creation time.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]core.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, owner, status, created_at_unix FROM agents ORDER BY created_at_unix
`)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var agents []core.Agent
	for rows.Next() {
		var (
			agent         core.Agent
			status        string
			createdAtUnix int64
		)
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.Owner, &status, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("scanning agent row: %w", err)
		}
		agent.Status = core.AgentStatus(status)
		agent.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// UpdateAgent applies non-empty fields of patch to the stored agent.
func (s *SQLiteStore) UpdateAgent(ctx context.Context, agentID string, patch core.Agent) (*core.Agent, error) {
	agent, err := s.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if patch.Name != "" {
		agent.Name = patch.Name
	}
	if patch.Owner != "" {
		agent.Owner = patch.Owner
	}
	if patch.Status != "" {
		if !patch.Status.IsValid() {
			return nil, fmt.Errorf("invalid agent status %q", patch.Status)
		}
		agent.Status = patch.Status
	}
	_, err = s.db.ExecContext(ctx, `
UPDATE agents SET name = ?, owner = ?, status = ? WHERE id = ?
`, agent.Name, agent.Owner, string(agent.Status), agentID)
	if err != nil {
		return nil, fmt.Errorf("updating agent %q: %w", agentID, err)
	}
	return agent, nil
}

// SetAgentStatus flips a single agent's status.
func (s *SQLiteStore) SetAgentStatus(ctx context.Context, agentID string, status core.AgentStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid agent status %q", status)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE agents SET status = ? WHERE id = ?
`, string(status), agentID)
	if err != nil {
		return fmt.Errorf("updating agent status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("agent %q: %w", agentID, core.ErrAgentNotFound)
	}
	return nil
}

// DeleteAgent removes the agent and, via cascade, its permissions.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, agentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, agentID)
	if err != nil {
		return fmt.Errorf("deleting agent %q: %w", agentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("agent %q: %w", agentID, core.ErrAgentNotFound)
	}
	return nil
}
