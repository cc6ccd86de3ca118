package server

import (
	"net/http"

	"github.com/filevault/filevault/auth"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// HealthHandler reports service liveness for monitoring.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.GetAppName(),
			"version": "1.0.0",
		})
	}
}

// RegisterHandler creates a new user account and returns the user with a
// fresh token pair.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params auth.RegisterParams
		if err := decodeJSON(r, &params); err != nil {
			writeError(w, http.StatusBadRequest, "Bad request", "invalid JSON body")
			return
		}

		credentials, err := s.auth.Register(params)
		if err != nil {
			log.Warn().Err(err).Str("email", params.Email).Msg("registration failed")
			writeError(w, http.StatusBadRequest, "Registration failed", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, credentials)
	}
}

// LoginHandler authenticates credentials and returns the user with a fresh
// token pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	type loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Bad request", "invalid JSON body")
			return
		}

		credentials, err := s.auth.Login(req.Email, req.Password)
		if err != nil {
			log.Warn().Err(err).Str("email", req.Email).Msg("login failed")
			writeError(w, http.StatusUnauthorized, "Login failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, credentials)
	}
}

// RefreshHandler exchanges the bearer refresh token for a new token pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshToken, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token refresh failed", "refresh token required")
			return
		}

		credentials, err := s.auth.Refresh(refreshToken)
		if err != nil {
			if !errors.Is(err, auth.InvalidRefreshTokenErr) {
				log.Error().Err(err).Msg("token refresh failed")
			}
			writeError(w, http.StatusUnauthorized, "Token refresh failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, credentials)
	}
}

// LogoutHandler revokes the access token and invalidates the refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	type logoutRequest struct {
		RefreshToken string `json:"refresh_token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, _ := bearerToken(r)

		var req logoutRequest
		_ = decodeJSON(r, &req)

		if err := s.auth.Logout(accessToken, req.RefreshToken); err != nil {
			writeError(w, http.StatusInternalServerError, "Logout failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
}
