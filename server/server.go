package server

import (
	"net/http"
	"strings"

	"github.com/filevault/filevault/auth"
	"github.com/filevault/filevault/files"
	"github.com/filevault/filevault/internal/config"
	"github.com/filevault/filevault/security"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Services holds the application services the HTTP layer dispatches into.
type Services struct {
	Auth    *auth.Service
	Files   *files.Service
	Monitor *security.Monitor
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config

	auth    *auth.Service
	files   *files.Service
	monitor *security.Monitor
}

func New(cfg config.Config, services Services) (*Server, error) {
	if services.Auth == nil {
		return nil, errors.New("[server.New] auth service is required")
	}
	if services.Files == nil {
		return nil, errors.New("[server.New] files service is required")
	}
	if services.Monitor == nil {
		return nil, errors.New("[server.New] security monitor is required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    services.Auth,
		files:   services.Files,
		monitor: services.Monitor,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Debug().Str("path", parts[0]).Msg("route registered")
		}
	}
}
