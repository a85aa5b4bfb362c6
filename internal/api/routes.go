package api

const (
	HealthCheckRoute = "/healthz"
	InfoRoute        = "/v1/info"

	AgentRequestRoute     = "/v1/agent/request"
	AgentKillRoute        = "/v1/agent/kill"
	KillSwitchRoute       = "/v1/agent/system-kill-switch"
	PendingApprovalsRoute = "/v1/agent/pending-approvals"
	ApproveRoute          = "/v1/agent/approve"
	DenyRoute             = "/v1/agent/deny"

	LogsRoute = "/v1/logs"

	AdminParent           = "/v1/admin/"
	AdminAgentsRoute      = AdminParent + "agents"
	AdminAgentRoute       = AdminParent + "agents/{id}"
	AdminPermissionsRoute = AdminParent + "permissions"
	AdminPermissionRoute  = AdminParent + "permissions/{id}"
)
