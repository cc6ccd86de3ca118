package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Health
	RouteHealth = "/health"

	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthRegister = "/auth/register"
	RouteAuthRefresh  = "/auth/refresh"
	RouteAuthLogout   = "/auth/logout"

	// User Routes
	RouteUserProfile = "/user/profile"

	// File Routes
	RouteFiles        = "/files"
	RouteFileUpload   = "/files/upload"
	RouteFile         = "/files/{id}"
	RouteFileDownload = "/files/{id}/download"

	// AI Routes
	RouteAIAnalyze  = "/ai/analyze/{id}"
	RouteAIInsights = "/ai/insights"

	// Security Routes
	RouteSecurityThreats = "/security/threats"
	RouteSecurityAudit   = "/security/audit"
)
