package client

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/core"
)

// PendingApprovals lists escalations waiting for a human decision,
// oldest first.
func (c *Client) PendingApprovals(ctx context.Context) ([]core.PendingRequest, error) {
	var resp []core.PendingRequest
	_, err := c.get(ctx, c.url().
		setPath(api.PendingApprovalsRoute).
		build(), &resp)
	return resp, err
}

// Approve resolves a pending escalation in the agent's favor.
func (c *Client) Approve(ctx context.Context, requestID, humanID string) (*core.Decision, string, error) {
	return c.resolve(ctx, api.ApproveRoute, requestID, humanID, "")
}

// Deny resolves a pending escalation against the agent. Notes are optional.
func (c *Client) Deny(ctx context.Context, requestID, humanID, notes string) (*core.Decision, string, error) {
	return c.resolve(ctx, api.DenyRoute, requestID, humanID, notes)
}

func (c *Client) resolve(ctx context.Context, route, requestID, humanID, notes string) (*core.Decision, string, error) {
	payload := api.HumanDecisionPayload{
		RequestID: requestID,
		HumanID:   humanID,
		Notes:     notes,
	}
	var decision core.Decision
	correlation, err := c.post(ctx, c.url().
		setPath(route).
		build(), payload, &decision)
	if err != nil {
		return nil, correlation, err
	}
	return &decision, correlation, nil
}
