package server

import (
	"net/http"

	"github.com/filevault/filevault/auth"
	"github.com/rs/zerolog/log"
)

// ProfileHandler returns the authenticated user's profile.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.Profile(userID(r))
		if err != nil {
			writeError(w, http.StatusNotFound, "Not found", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// UpdateProfileHandler applies profile changes for the authenticated user.
func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update auth.ProfileUpdate
		if err := decodeJSON(r, &update); err != nil {
			writeError(w, http.StatusBadRequest, "Bad request", "invalid JSON body")
			return
		}

		user, err := s.auth.UpdateProfile(userID(r), update)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID(r)).Msg("profile update failed")
			writeError(w, http.StatusBadRequest, "Failed to update profile", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
