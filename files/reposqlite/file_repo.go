package sqlitefilerepo

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/filevault/filevault/analysis"
	"github.com/filevault/filevault/files"
	"github.com/pkg/errors"
)

var _ files.Repo = (*FileRepo)(nil)

// FileRepo persists file metadata in SQLite. The analysis report is stored as
// a JSON column, mirroring how the metadata travels over the API.
type FileRepo struct {
	db *sql.DB
}

const fileSchema = `
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	stored_name TEXT NOT NULL,
	size INTEGER NOT NULL,
	content_type TEXT NOT NULL,
	hash TEXT NOT NULL,
	uploaded_at DATETIME NOT NULL,
	last_accessed DATETIME,
	access_count INTEGER NOT NULL DEFAULT 0,
	security_status TEXT NOT NULL DEFAULT 'pending',
	analysis_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_files_user ON files(user_id);
`

func New(db *sql.DB) (*FileRepo, error) {
	if _, err := db.Exec(fileSchema); err != nil {
		return nil, errors.Wrap(err, "[sqlitefilerepo.New] init schema")
	}
	return &FileRepo{db: db}, nil
}

func (fr *FileRepo) Upsert(file *files.File) error {
	var analysisJSON []byte
	if file.Analysis != nil {
		var err error
		analysisJSON, err = json.Marshal(file.Analysis)
		if err != nil {
			return errors.Wrap(err, "[FileRepo.Upsert] marshal analysis")
		}
	}

	_, err := fr.db.Exec(`
		INSERT INTO files (id, user_id, name, stored_name, size, content_type, hash, uploaded_at,
			last_accessed, access_count, security_status, analysis_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			security_status = excluded.security_status,
			analysis_json = excluded.analysis_json`,
		file.ID, file.UserID, file.Name, file.StoredName, file.Size, file.ContentType, file.Hash,
		file.UploadedAt, nullTime(file.LastAccessed), file.AccessCount, file.SecurityStatus, string(analysisJSON))
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Upsert] exec")
	}
	return nil
}

func (fr *FileRepo) Get(fileID, userID string) (*files.File, error) {
	row := fr.db.QueryRow(`
		SELECT id, user_id, name, stored_name, size, content_type, hash, uploaded_at,
			last_accessed, access_count, security_status, analysis_json
		FROM files WHERE id = ? AND user_id = ?`, fileID, userID)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("not found")
	}
	return file, err
}

func (fr *FileRepo) ListByUser(userID string) ([]*files.File, error) {
	rows, err := fr.db.Query(`
		SELECT id, user_id, name, stored_name, size, content_type, hash, uploaded_at,
			last_accessed, access_count, security_status, analysis_json
		FROM files WHERE user_id = ? ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[FileRepo.ListByUser] query")
	}
	defer rows.Close()

	fileList := make([]*files.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		fileList = append(fileList, file)
	}
	return fileList, rows.Err()
}

func (fr *FileRepo) Delete(fileID, userID string) error {
	res, err := fr.db.Exec(`DELETE FROM files WHERE id = ? AND user_id = ?`, fileID, userID)
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Delete] exec")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("not found")
	}
	return nil
}

func (fr *FileRepo) RecordAccess(fileID, userID string, at time.Time) error {
	res, err := fr.db.Exec(`
		UPDATE files SET access_count = access_count + 1, last_accessed = ?
		WHERE id = ? AND user_id = ?`, at, fileID, userID)
	if err != nil {
		return errors.Wrap(err, "[FileRepo.RecordAccess] exec")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*files.File, error) {
	var (
		file         files.File
		lastAccessed sql.NullTime
		analysisJSON sql.NullString
	)
	err := row.Scan(&file.ID, &file.UserID, &file.Name, &file.StoredName, &file.Size,
		&file.ContentType, &file.Hash, &file.UploadedAt, &lastAccessed, &file.AccessCount,
		&file.SecurityStatus, &analysisJSON)
	if err != nil {
		return nil, err
	}
	if lastAccessed.Valid {
		file.LastAccessed = &lastAccessed.Time
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		var report analysis.Report
		if err := json.Unmarshal([]byte(analysisJSON.String), &report); err != nil {
			return nil, errors.Wrap(err, "[scanFile] unmarshal analysis")
		}
		file.Analysis = &report
	}
	return &file, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
