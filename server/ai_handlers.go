package server

import (
	"net/http"
)

// AnalyzeFileHandler re-runs content analysis over a stored file.
func (s *Server) AnalyzeFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := s.files.Reanalyze(r.PathValue("id"), userID(r))
		if err != nil {
			writeError(w, http.StatusNotFound, "AI analysis failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":      "File re-analyzed successfully",
			"file_id":      file.ID,
			"new_analysis": file.Analysis,
		})
	}
}

// InsightsHandler aggregates statistics over the user's stored files.
func (s *Server) InsightsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insights, err := s.files.Insights(userID(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get AI insights", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
	}
}
