package client

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/core"
)

// CreateAgent registers a new agent. ID and status may be left empty.
func (c *Client) CreateAgent(ctx context.Context, payload api.AgentPayload) (*core.Agent, error) {
	var agent core.Agent
	_, err := c.post(ctx, c.url().
		setPath(api.AdminAgentsRoute).
		build(), payload, &agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// ListAgents retrieves all registered agents.
func (c *Client) ListAgents(ctx context.Context) ([]core.Agent, error) {
	var agents []core.Agent
	_, err := c.get(ctx, c.url().
		setPath(api.AdminAgentsRoute).
		build(), &agents)
	return agents, err
}

func (c *Client) GetAgent(ctx context.Context, agentID string) (*core.Agent, error) {
	var agent core.Agent
	_, err := c.get(ctx, c.url().
		setPath(api.AdminAgentRoute).
		setPathParam("id", agentID).
		build(), &agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgent patches an agent; empty payload fields are left untouched.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, payload api.AgentPayload) (*core.Agent, error) {
	var agent core.Agent
	_, err := c.put(ctx, c.url().
		setPath(api.AdminAgentRoute).
		setPathParam("id", agentID).
		build(), payload, &agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	_, err := c.del(ctx, c.url().
		setPath(api.AdminAgentRoute).
		setPathParam("id", agentID).
		build())
	return err
}

// CreatePermission grants one (agent, action, resource) rule.
func (c *Client) CreatePermission(ctx context.Context, payload api.PermissionPayload) (*core.Permission, error) {
	var perm core.Permission
	_, err := c.post(ctx, c.url().
		setPath(api.AdminPermissionsRoute).
		build(), payload, &perm)
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// ListPermissions retrieves permission rules, optionally scoped to one agent.
func (c *Client) ListPermissions(ctx context.Context, agentID string) ([]core.Permission, error) {
	ub := c.url().setPath(api.AdminPermissionsRoute)
	if agentID != "" {
		ub = ub.addQueryParam("agent_id", agentID)
	}
	var perms []core.Permission
	_, err := c.get(ctx, ub.build(), &perms)
	return perms, err
}

func (c *Client) DeletePermission(ctx context.Context, permissionID string) error {
	_, err := c.del(ctx, c.url().
		setPath(api.AdminPermissionRoute).
		setPathParam("id", permissionID).
		build())
	return err
}
