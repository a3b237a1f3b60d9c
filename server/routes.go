package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// Credentials
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthHeartbeat, ChainMiddleware(s.HeartbeatHandler(), s.APIMiddleware()...))

	// Public intake
	s.RegisterRouteHandler("POST "+RouteTokenRequests, ChainMiddleware(s.SubmitTokenRequestHandler(), s.APIMiddleware()...))

	// Admin
	admin := s.APIMiddleware(s.RequireSession, s.RequireAdmin)
	s.RegisterRouteHandler("GET "+RouteAdminUsers, ChainMiddleware(s.AdminListUsersHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminUsers, ChainMiddleware(s.AdminCreateUserHandler(), admin...))
	s.RegisterRouteHandler("DELETE "+RouteAdminUser, ChainMiddleware(s.AdminDeleteUserHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminUserStatus, ChainMiddleware(s.AdminSetUserStatusHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminUserLogout, ChainMiddleware(s.AdminForceLogoutHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminUserTokens, ChainMiddleware(s.AdminListTokensHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminUserTokens, ChainMiddleware(s.AdminIssueTokenHandler(), admin...))
	s.RegisterRouteHandler("DELETE "+RouteAdminToken, ChainMiddleware(s.AdminRevokeTokenHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminAuditLogs, ChainMiddleware(s.AdminAuditLogsHandler(), admin...))
	s.RegisterRouteHandler("GET "+RouteAdminTokenRequests, ChainMiddleware(s.AdminListTokenRequestsHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminTokenRequestStatus, ChainMiddleware(s.AdminTokenRequestStatusHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminTokenRequestApprove, ChainMiddleware(s.AdminApproveTokenRequestHandler(), admin...))
	s.RegisterRouteHandler("POST "+RouteAdminTokenRequestRetry, ChainMiddleware(s.AdminRetryTokenRequestEmailHandler(), admin...))

	// Game sync
	s.RegisterRouteHandler("GET "+RouteSync, ChainMiddleware(s.SyncHandler(), s.RecoverMiddleware, s.LoggingMiddleware))
	s.RegisterRouteHandler("GET "+RouteGameState, ChainMiddleware(s.GameStateHandler(), s.APIMiddleware(s.RequireSession)...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware))

	// Operations
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	})
}
