package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Credential routes
	RouteAuthRegister  = "/api/auth/register"
	RouteAuthLogin     = "/api/auth/login"
	RouteAuthLogout    = "/api/auth/logout"
	RouteAuthHeartbeat = "/api/auth/heartbeat"

	// Public intake
	RouteTokenRequests = "/api/token-requests"

	// Admin routes (admin session required)
	RouteAdminUsers               = "/api/admin/users"
	RouteAdminUserStatus          = "/api/admin/users/{id}/status"
	RouteAdminUserLogout          = "/api/admin/users/{id}/logout"
	RouteAdminUserTokens          = "/api/admin/users/{id}/tokens"
	RouteAdminUser                = "/api/admin/users/{id}"
	RouteAdminToken               = "/api/admin/tokens/{id}"
	RouteAdminAuditLogs           = "/api/admin/audit-logs"
	RouteAdminTokenRequests       = "/api/admin/token-requests"
	RouteAdminTokenRequestStatus  = "/api/admin/token-requests/{id}/status"
	RouteAdminTokenRequestApprove = "/api/admin/token-requests/{id}/approve"
	RouteAdminTokenRequestRetry   = "/api/admin/token-requests/{id}/retry-email"

	// Game sync
	RouteSync      = "/ws/sync"
	RouteGameState = "/api/game/state"

	// Operations
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
