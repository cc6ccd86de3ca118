package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// Auth
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// User profile (require valid access token)
	s.RegisterRouteHandler("GET "+RouteUserProfile, ChainMiddleware(s.ProfileHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("PUT "+RouteUserProfile, ChainMiddleware(s.UpdateProfileHandler(), s.ProtectedAPIMiddleware()...))

	// Files
	s.RegisterRouteHandler("POST "+RouteFileUpload, ChainMiddleware(s.UploadFileHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteFiles, ChainMiddleware(s.ListFilesHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteFile, ChainMiddleware(s.GetFileHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteFileDownload, ChainMiddleware(s.DownloadFileHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteFile, ChainMiddleware(s.DeleteFileHandler(), s.ProtectedAPIMiddleware()...))

	// AI analysis
	s.RegisterRouteHandler("POST "+RouteAIAnalyze, ChainMiddleware(s.AnalyzeFileHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAIInsights, ChainMiddleware(s.InsightsHandler(), s.ProtectedAPIMiddleware()...))

	// Security
	s.RegisterRouteHandler("GET "+RouteSecurityThreats, ChainMiddleware(s.ThreatsHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSecurityAudit, ChainMiddleware(s.AuditLogHandler(), s.ProtectedAPIMiddleware()...))
}
