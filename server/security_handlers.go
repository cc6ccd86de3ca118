package server

import (
	"net/http"
	"strconv"
)

const defaultAuditLimit = 100

// ThreatsHandler lists the active security alerts for the user.
func (s *Server) ThreatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threats, err := s.monitor.Threats(userID(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get security threats", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"threats": threats})
	}
}

// AuditLogHandler returns the user's audit trail, newest first.
func (s *Server) AuditLogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		events, err := s.monitor.AuditLog(userID(r), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get audit log", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"audit_log": events})
	}
}
