package files

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store writes uploaded files to local disk under baseDir/<userID>/<storedName>.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "[NewStore] create base directory")
	}
	return &Store{baseDir: baseDir}, nil
}

// Save streams r to disk and returns the byte count and sha256 hex digest of
// what was written.
func (s *Store) Save(userID, storedName string, r io.Reader) (int64, string, error) {
	userDir := filepath.Join(s.baseDir, userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return 0, "", errors.Wrap(err, "[Store.Save] create user directory")
	}

	path := filepath.Join(userDir, storedName)
	f, err := os.Create(path)
	if err != nil {
		return 0, "", errors.Wrap(err, "[Store.Save] create file")
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hasher), r)
	if err != nil {
		os.Remove(path)
		return 0, "", errors.Wrap(err, "[Store.Save] write file")
	}

	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

// Open returns a reader over the stored content. The caller closes it.
func (s *Store) Open(userID, storedName string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.baseDir, userID, storedName))
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Open] open file")
	}
	return f, nil
}

// Path returns the absolute location of a stored file.
func (s *Store) Path(userID, storedName string) (string, error) {
	path, err := filepath.Abs(filepath.Join(s.baseDir, userID, storedName))
	if err != nil {
		return "", errors.Wrap(err, "[Store.Path] resolve path")
	}
	return path, nil
}

// Remove deletes the stored content. Missing files are not an error.
func (s *Store) Remove(userID, storedName string) error {
	err := os.Remove(filepath.Join(s.baseDir, userID, storedName))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[Store.Remove] remove file")
	}
	return nil
}
