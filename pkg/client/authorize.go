package client

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/core"
)

// Authorize asks the server whether agentID may perform action on resource.
// The returned decision carries the full rule trace; denied decisions that
// escalated have ActionRequired set.
func (c *Client) Authorize(
	ctx context.Context,
	agentID, action, resource string,
) (*core.Decision, string, error) {
	payload := api.AgentRequestPayload{
		AgentID:  agentID,
		Action:   action,
		Resource: resource,
	}
	var decision core.Decision
	correlation, err := c.post(ctx, c.url().
		setPath(api.AgentRequestRoute).
		build(), payload, &decision)
	if err != nil {
		return nil, correlation, err
	}
	return &decision, correlation, nil
}

// KillAgent enables or disables one agent on the owner's behalf.
func (c *Client) KillAgent(ctx context.Context, agentID, owner string, enabled bool) (*api.AgentKillResponse, error) {
	payload := api.AgentKillPayload{
		AgentID: agentID,
		Owner:   owner,
		Enabled: enabled,
	}
	var resp api.AgentKillResponse
	_, err := c.post(ctx, c.url().
		setPath(api.AgentKillRoute).
		build(), payload, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetKillSwitch flips the system-wide kill switch.
func (c *Client) SetKillSwitch(ctx context.Context, enabled bool) (*api.KillSwitchResponse, error) {
	payload := api.KillSwitchPayload{Enabled: enabled}
	var resp api.KillSwitchResponse
	_, err := c.post(ctx, c.url().
		setPath(api.KillSwitchRoute).
		build(), payload, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetKillSwitch reports the current kill switch state.
func (c *Client) GetKillSwitch(ctx context.Context) (*api.KillSwitchResponse, error) {
	var resp api.KillSwitchResponse
	_, err := c.get(ctx, c.url().
		setPath(api.KillSwitchRoute).
		build(), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
