package client

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/filevault/filevault/users"
	"github.com/pkg/errors"
)

// storageKey is the single key the session is persisted under.
const storageKey = "filevault-auth"

// Session is the authenticated-user context: profile, access token, refresh
// token. A session is either fully authenticated (all fields present) or
// fully logged out (all cleared); there is no partial state.
type Session struct {
	User            *users.User `json:"user"`
	Token           string      `json:"token"`
	RefreshToken    string      `json:"refreshToken"`
	IsAuthenticated bool        `json:"isAuthenticated"`
}

// Store persists a session between runs.
type Store interface {
	Load() (*Session, error) // returns nil, nil when nothing is persisted
	Save(session *Session) error
	Clear() error
}

// FileStore persists the session as JSON on local disk, keyed under
// storageKey the same way the browser client kept it in local storage.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] read file")
	}

	var stored map[string]*Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] unmarshal")
	}
	return stored[storageKey], nil
}

func (fs *FileStore) Save(session *Session) error {
	data, err := json.MarshalIndent(map[string]*Session{storageKey: session}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] marshal")
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Save] create directory")
	}
	// Credentials on disk, keep them private.
	if err := os.WriteFile(fs.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] write file")
	}
	return nil
}

func (fs *FileStore) Clear() error {
	err := os.Remove(fs.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove file")
	}
	return nil
}

// MemoryStore keeps the session in memory only. Useful for tests and
// short-lived tooling that should not persist credentials.
type MemoryStore struct {
	session *Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) Load() (*Session, error) {
	return ms.session, nil
}

func (ms *MemoryStore) Save(session *Session) error {
	copied := *session
	ms.session = &copied
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.session = nil
	return nil
}
