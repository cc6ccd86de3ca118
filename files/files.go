package files

import (
	"time"

	"github.com/filevault/filevault/analysis"
)

// SecurityStatus of a stored file.
const (
	StatusSafe    = "safe"
	StatusPending = "pending"
	StatusFlagged = "flagged"
)

// File is the stored metadata for one uploaded file.
type File struct {
	ID             string           `json:"file_id"`
	UserID         string           `json:"-"`
	Name           string           `json:"filename"`  // Original filename as uploaded
	StoredName     string           `json:"-"`         // Name on disk (ID + extension)
	Size           int64            `json:"size"`
	ContentType    string           `json:"content_type"`
	Hash           string           `json:"file_hash"` // sha256 of the stored content
	UploadedAt     time.Time        `json:"upload_date"`
	LastAccessed   *time.Time       `json:"last_accessed,omitempty"`
	AccessCount    int              `json:"access_count"`
	SecurityStatus string           `json:"security_status"`
	Analysis       *analysis.Report `json:"ai_analysis,omitempty"`
}

// Repo stores file metadata. Lookups are always scoped to the owning user.
type Repo interface {
	Upsert(file *File) error
	Get(fileID, userID string) (*File, error)
	ListByUser(userID string) ([]*File, error)
	Delete(fileID, userID string) error
	RecordAccess(fileID, userID string, at time.Time) error
}
