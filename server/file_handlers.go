package server

import (
	"net/http"
	"strings"

	"github.com/filevault/filevault/files"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxMultipartMemory bounds how much of a multipart body is held in memory
// before spilling to temp files.
const maxMultipartMemory = 10 << 20 // 10MB

// UploadFileHandler accepts a multipart upload, runs it through analysis
// and the security check, and stores it on success.
func (s *Server) UploadFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "Bad request", "multipart form expected")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No file provided", "")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		stored, err := s.files.Upload(userID(r), header.Filename, contentType, file)
		if err != nil {
			var unsafeErr *files.UnsafeFileError
			if errors.As(err, &unsafeErr) {
				writeJSON(w, http.StatusForbidden, map[string]any{
					"error":           "File flagged by security analysis",
					"details":         unsafeErr.Threats,
					"recommendations": unsafeErr.Recommendations,
				})
				return
			}
			if errors.Is(err, files.InvalidFileTypeErr) || errors.Is(err, files.FileTooLargeErr) || errors.Is(err, files.EmptyFilenameErr) {
				writeError(w, http.StatusBadRequest, "File upload failed", err.Error())
				return
			}
			log.Error().Err(err).Msg("file upload failed")
			writeError(w, http.StatusInternalServerError, "File upload failed", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

// ListFilesHandler lists the authenticated user's files, optionally filtered
// by a case-insensitive name search.
func (s *Server) ListFilesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileList, err := s.files.List(userID(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list files", err.Error())
			return
		}

		if search := strings.ToLower(r.URL.Query().Get("search")); search != "" {
			filtered := fileList[:0]
			for _, f := range fileList {
				if strings.Contains(strings.ToLower(f.Name), search) {
					filtered = append(filtered, f)
				}
			}
			fileList = filtered
		}

		writeJSON(w, http.StatusOK, map[string]any{"files": fileList})
	}
}

// GetFileHandler returns one file's metadata and analysis report.
func (s *Server) GetFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := s.files.Details(r.PathValue("id"), userID(r))
		if err != nil {
			writeError(w, http.StatusNotFound, "Failed to retrieve file", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, file)
	}
}

// DownloadFileHandler resolves the download location for a file.
func (s *Server) DownloadFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := s.files.DownloadPath(r.PathValue("id"), userID(r))
		if err != nil {
			writeError(w, http.StatusNotFound, "Failed to generate download URL", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"download_url": path})
	}
}

// DeleteFileHandler removes a file's content and metadata.
func (s *Server) DeleteFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileID := r.PathValue("id")
		if err := s.files.Delete(fileID, userID(r)); err != nil {
			writeError(w, http.StatusNotFound, "Failed to delete file", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "File deleted successfully",
			"file_id": fileID,
		})
	}
}
