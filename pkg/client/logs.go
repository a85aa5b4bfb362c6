package client

import (
	"context"
	"time"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/core"
)

type QueryLogsOpts struct {
	AgentID   string
	StartTime time.Time
	EndTime   time.Time
	Limit     uint
}

// QueryLogs retrieves audit log entries from the server, newest first.
func (c *Client) QueryLogs(ctx context.Context, opts QueryLogsOpts) ([]core.LogEntry, error) {
	ub := c.url().setPath(api.LogsRoute)
	if opts.AgentID != "" {
		ub = ub.addQueryParam("agent_id", opts.AgentID)
	}
	if !opts.StartTime.IsZero() {
		ub = ub.addQueryParam("start_time", opts.StartTime.Format(time.RFC3339))
	}
	if !opts.EndTime.IsZero() {
		ub = ub.addQueryParam("end_time", opts.EndTime.Format(time.RFC3339))
	}
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	var resp []core.LogEntry
	_, err := c.get(ctx, ub.build(), &resp)
	return resp, err
}
