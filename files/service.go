package files

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/filevault/filevault/analysis"
	"github.com/filevault/filevault/security"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const defaultMaxFileSize = 100 << 20 // 100MB

func defaultAllowedExtensions() map[string]struct{} {
	exts := []string{
		"txt", "pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
		"jpg", "jpeg", "png", "gif", "mp4", "avi", "mov", "mp3", "wav",
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		allowed[e] = struct{}{}
	}
	return allowed
}

// Service owns the upload pipeline: validate, analyze, security-check, store.
type Service struct {
	repo        Repo
	store       *Store
	analyzer    analysis.Analyzer
	monitor     *security.Monitor
	maxFileSize int64
	allowedExts map[string]struct{}
	nowFunc     func() time.Time
}

type ServiceOption func(*Service)

func WithMaxFileSize(maxBytes int64) ServiceOption {
	return func(s *Service) {
		s.maxFileSize = maxBytes
	}
}

func WithAllowedExtensions(exts []string) ServiceOption {
	return func(s *Service) {
		s.allowedExts = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			s.allowedExts[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
		}
	}
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(repo Repo, store *Store, analyzer analysis.Analyzer, monitor *security.Monitor, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[files.NewService] repo is required")
	}
	if store == nil {
		return nil, errors.New("[files.NewService] store is required")
	}
	if analyzer == nil {
		return nil, errors.New("[files.NewService] analyzer is required")
	}
	if monitor == nil {
		return nil, errors.New("[files.NewService] monitor is required")
	}

	s := &Service{
		repo:        repo,
		store:       store,
		analyzer:    analyzer,
		monitor:     monitor,
		maxFileSize: defaultMaxFileSize,
		allowedExts: defaultAllowedExtensions(),
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Upload validates and analyzes the content, rejects anything the security
// check flags, and only then writes it to storage.
func (s *Service) Upload(userID, filename, contentType string, r io.Reader) (*File, error) {
	ext, err := s.validateFilename(filename)
	if err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Upload] read content")
	}
	if int64(len(content)) > s.maxFileSize {
		return nil, FileTooLargeErr
	}

	report, err := s.analyzer.AnalyzeContent(filename, contentType, bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Upload] analyze content")
	}

	assessment := s.monitor.CheckFile(report)
	if !assessment.Safe {
		s.monitor.Record(userID, security.EventFileFlagged, map[string]string{
			"filename": filename,
			"threats":  strings.Join(assessment.Threats, "; "),
		})
		return nil, &UnsafeFileError{
			Threats:         assessment.Threats,
			Recommendations: assessment.Recommendations,
			RiskScore:       assessment.RiskScore,
		}
	}

	fileID := uuid.New().String()
	storedName := fileID
	if ext != "" {
		storedName += "." + ext
	}

	size, hash, err := s.store.Save(userID, storedName, bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Upload] save content")
	}

	file := &File{
		ID:             fileID,
		UserID:         userID,
		Name:           filename,
		StoredName:     storedName,
		Size:           size,
		ContentType:    contentType,
		Hash:           hash,
		UploadedAt:     s.nowFunc().UTC(),
		SecurityStatus: StatusSafe,
		Analysis:       report,
	}
	if err := s.repo.Upsert(file); err != nil {
		_ = s.store.Remove(userID, storedName)
		return nil, errors.Wrap(err, "[Service.Upload] store metadata")
	}

	s.monitor.Record(userID, security.EventFileUpload, map[string]string{
		"file_id":  fileID,
		"filename": filename,
	})
	return file, nil
}

func (s *Service) List(userID string) ([]*File, error) {
	fileList, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.List] list files")
	}
	return fileList, nil
}

// Details fetches one file's metadata and records the access.
func (s *Service) Details(fileID, userID string) (*File, error) {
	file, err := s.repo.Get(fileID, userID)
	if err != nil {
		return nil, FileNotFoundErr
	}
	if err := s.repo.RecordAccess(fileID, userID, s.nowFunc().UTC()); err != nil {
		return nil, errors.Wrap(err, "[Service.Details] record access")
	}
	return file, nil
}

// DownloadPath resolves the on-disk location of the file's content and
// records the download.
func (s *Service) DownloadPath(fileID, userID string) (string, error) {
	file, err := s.repo.Get(fileID, userID)
	if err != nil {
		return "", FileNotFoundErr
	}
	path, err := s.store.Path(userID, file.StoredName)
	if err != nil {
		return "", errors.Wrap(err, "[Service.DownloadPath] resolve path")
	}
	if err := s.repo.RecordAccess(fileID, userID, s.nowFunc().UTC()); err != nil {
		return "", errors.Wrap(err, "[Service.DownloadPath] record access")
	}
	s.monitor.Record(userID, security.EventFileDownload, map[string]string{"file_id": fileID})
	return path, nil
}

func (s *Service) Delete(fileID, userID string) error {
	file, err := s.repo.Get(fileID, userID)
	if err != nil {
		return FileNotFoundErr
	}
	if err := s.store.Remove(userID, file.StoredName); err != nil {
		return errors.Wrap(err, "[Service.Delete] remove content")
	}
	if err := s.repo.Delete(fileID, userID); err != nil {
		return errors.Wrap(err, "[Service.Delete] remove metadata")
	}
	s.monitor.Record(userID, security.EventFileDelete, map[string]string{"file_id": fileID})
	return nil
}

// Reanalyze re-runs content analysis over the stored content and updates the
// file's report and security status.
func (s *Service) Reanalyze(fileID, userID string) (*File, error) {
	file, err := s.repo.Get(fileID, userID)
	if err != nil {
		return nil, FileNotFoundErr
	}

	content, err := s.store.Open(userID, file.StoredName)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Reanalyze] open content")
	}
	defer content.Close()

	report, err := s.analyzer.AnalyzeContent(file.Name, file.ContentType, content)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Reanalyze] analyze")
	}

	file.Analysis = report
	if s.monitor.CheckFile(report).Safe {
		file.SecurityStatus = StatusSafe
	} else {
		file.SecurityStatus = StatusFlagged
		s.monitor.Record(userID, security.EventFileFlagged, map[string]string{"file_id": fileID})
	}
	if err := s.repo.Upsert(file); err != nil {
		return nil, errors.Wrap(err, "[Service.Reanalyze] store metadata")
	}
	return file, nil
}

// Insights aggregates per-user statistics over the stored files.
func (s *Service) Insights(userID string) (*analysis.Insights, error) {
	fileList, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Insights] list files")
	}

	insights := &analysis.Insights{
		FileStatistics: analysis.FileStatistics{FileTypes: make(map[string]int)},
		SecuritySummary: analysis.Summary{
			RiskLevel: "low",
		},
		Recommendations: []string{},
	}

	for _, f := range fileList {
		insights.FileStatistics.TotalFiles++
		insights.FileStatistics.TotalBytes += f.Size
		fileType := "unknown"
		if f.Analysis != nil {
			fileType = f.Analysis.FileType
		}
		insights.FileStatistics.FileTypes[fileType]++

		if f.SecurityStatus == StatusFlagged {
			insights.SecuritySummary.FlaggedFiles++
		} else {
			insights.SecuritySummary.SafeFiles++
		}
	}

	if insights.SecuritySummary.FlaggedFiles > 0 {
		insights.SecuritySummary.RiskLevel = "medium"
		insights.Recommendations = append(insights.Recommendations, "Review flagged files")
	}
	if insights.FileStatistics.TotalFiles == 0 {
		insights.Recommendations = append(insights.Recommendations, "Upload files to see insights")
	}

	return insights, nil
}

func (s *Service) validateFilename(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", EmptyFilenameErr
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "", InvalidFileTypeErr
	}
	if _, ok := s.allowedExts[ext]; !ok {
		return "", InvalidFileTypeErr
	}
	return ext, nil
}
