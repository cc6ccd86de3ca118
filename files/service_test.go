package files_test

import (
	"strings"
	"testing"

	"github.com/filevault/filevault/analysis"
	"github.com/filevault/filevault/files"
	fakefilerepo "github.com/filevault/filevault/files/repofake"
	"github.com/filevault/filevault/security"
	fakeauditrepo "github.com/filevault/filevault/security/repofake"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

type serviceFixture struct {
	repo      files.Repo
	store     *files.Store
	auditRepo security.AuditRepo
	monitor   *security.Monitor
	service   *files.Service
}

func setupService(t *testing.T, options ...files.ServiceOption) *serviceFixture {
	t.Helper()

	repo := fakefilerepo.NewFakeFileRepo()
	auditRepo := fakeauditrepo.NewFakeAuditRepo()

	store, err := files.NewStore(t.TempDir())
	require.NoError(t, err)

	monitor, err := security.NewMonitor(auditRepo)
	require.NoError(t, err)

	service, err := files.NewService(repo, store, analysis.NewContentAnalyzer(), monitor, options...)
	require.NoError(t, err)

	return &serviceFixture{
		repo:      repo,
		store:     store,
		auditRepo: auditRepo,
		monitor:   monitor,
		service:   service,
	}
}

func TestUploadStoresSafeFile(t *testing.T) {
	f := setupService(t)

	content := "just some harmless notes"
	file, err := f.service.Upload(testUserID, "notes.txt", "text/plain", strings.NewReader(content))
	require.NoError(t, err)
	require.NotEmpty(t, file.ID)
	require.Equal(t, "notes.txt", file.Name)
	require.Equal(t, int64(len(content)), file.Size)
	require.Len(t, file.Hash, 64)
	require.Equal(t, files.StatusSafe, file.SecurityStatus)
	require.NotNil(t, file.Analysis)
	require.Equal(t, "text", file.Analysis.FileType)

	reader, err := f.store.Open(testUserID, file.StoredName)
	require.NoError(t, err)
	defer reader.Close()
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	f := setupService(t)

	_, err := f.service.Upload(testUserID, "malware.exe", "application/octet-stream", strings.NewReader("x"))
	require.ErrorIs(t, err, files.InvalidFileTypeErr)
}

func TestUploadRejectsEmptyFilename(t *testing.T) {
	f := setupService(t)

	_, err := f.service.Upload(testUserID, "  ", "text/plain", strings.NewReader("x"))
	require.ErrorIs(t, err, files.EmptyFilenameErr)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := setupService(t, files.WithMaxFileSize(16))

	_, err := f.service.Upload(testUserID, "big.txt", "text/plain", strings.NewReader(strings.Repeat("a", 17)))
	require.ErrorIs(t, err, files.FileTooLargeErr)
}

func TestUploadFlagsCredentialContent(t *testing.T) {
	f := setupService(t)

	content := "nothing to see\npassword: hunter2\n"
	_, err := f.service.Upload(testUserID, "secrets.txt", "text/plain", strings.NewReader(content))

	var unsafeErr *files.UnsafeFileError
	require.ErrorAs(t, err, &unsafeErr)
	require.NotEmpty(t, unsafeErr.Threats)
	require.GreaterOrEqual(t, unsafeErr.RiskScore, 0.7)

	// Flagged content must never reach storage.
	fileList, err := f.service.List(testUserID)
	require.NoError(t, err)
	require.Empty(t, fileList)
}

func TestUploadFlagsMalwareSignature(t *testing.T) {
	f := setupService(t)

	content := "X5O!P%@AP[4\\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*"
	_, err := f.service.Upload(testUserID, "payload.txt", "text/plain", strings.NewReader(content))

	var unsafeErr *files.UnsafeFileError
	require.ErrorAs(t, err, &unsafeErr)
	require.Equal(t, 1.0, unsafeErr.RiskScore)
}

func TestListAndDelete(t *testing.T) {
	f := setupService(t)

	file, err := f.service.Upload(testUserID, "notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)

	fileList, err := f.service.List(testUserID)
	require.NoError(t, err)
	require.Len(t, fileList, 1)

	require.NoError(t, f.service.Delete(file.ID, testUserID))

	fileList, err = f.service.List(testUserID)
	require.NoError(t, err)
	require.Empty(t, fileList)

	_, err = f.store.Open(testUserID, file.StoredName)
	require.Error(t, err)
}

func TestDeleteUnknownFile(t *testing.T) {
	f := setupService(t)

	err := f.service.Delete("no-such-file", testUserID)
	require.ErrorIs(t, err, files.FileNotFoundErr)
}

func TestDetailsRecordsAccess(t *testing.T) {
	f := setupService(t)

	file, err := f.service.Upload(testUserID, "notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)

	_, err = f.service.Details(file.ID, testUserID)
	require.NoError(t, err)
	_, err = f.service.Details(file.ID, testUserID)
	require.NoError(t, err)

	stored, err := f.repo.Get(file.ID, testUserID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.AccessCount)
	require.NotNil(t, stored.LastAccessed)
}

func TestFilesAreScopedToOwner(t *testing.T) {
	f := setupService(t)

	file, err := f.service.Upload(testUserID, "notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)

	_, err = f.service.Details(file.ID, "someone-else")
	require.ErrorIs(t, err, files.FileNotFoundErr)
}

func TestDownloadPathResolves(t *testing.T) {
	f := setupService(t)

	file, err := f.service.Upload(testUserID, "notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)

	path, err := f.service.DownloadPath(file.ID, testUserID)
	require.NoError(t, err)
	require.Contains(t, path, file.StoredName)
}

func TestReanalyzeKeepsSafeStatus(t *testing.T) {
	f := setupService(t)

	file, err := f.service.Upload(testUserID, "notes.txt", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)

	updated, err := f.service.Reanalyze(file.ID, testUserID)
	require.NoError(t, err)
	require.Equal(t, files.StatusSafe, updated.SecurityStatus)
	require.NotNil(t, updated.Analysis)
}

func TestInsightsAggregation(t *testing.T) {
	f := setupService(t)

	_, err := f.service.Upload(testUserID, "a.txt", "text/plain", strings.NewReader("aaa"))
	require.NoError(t, err)
	_, err = f.service.Upload(testUserID, "b.txt", "text/plain", strings.NewReader("bbbb"))
	require.NoError(t, err)

	insights, err := f.service.Insights(testUserID)
	require.NoError(t, err)
	require.Equal(t, 2, insights.FileStatistics.TotalFiles)
	require.Equal(t, int64(7), insights.FileStatistics.TotalBytes)
	require.Equal(t, 2, insights.FileStatistics.FileTypes["text"])
	require.Equal(t, 2, insights.SecuritySummary.SafeFiles)
	require.Equal(t, "low", insights.SecuritySummary.RiskLevel)
}

func TestInsightsEmpty(t *testing.T) {
	f := setupService(t)

	insights, err := f.service.Insights(testUserID)
	require.NoError(t, err)
	require.Equal(t, 0, insights.FileStatistics.TotalFiles)
	require.Contains(t, insights.Recommendations, "Upload files to see insights")
}
