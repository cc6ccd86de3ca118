package sqlitetokenrepo

import (
	"database/sql"
	"time"

	"github.com/filevault/filevault/token"
	"github.com/pkg/errors"
)

var _ token.RefreshTokenRepo = (*TokenRepo)(nil)

// TokenRepo persists refresh token metadata in SQLite so sessions survive a
// server restart.
type TokenRepo struct {
	db *sql.DB
}

const tokenSchema = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
	token TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	iat DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
`

func New(db *sql.DB) (*TokenRepo, error) {
	if _, err := db.Exec(tokenSchema); err != nil {
		return nil, errors.Wrap(err, "[sqlitetokenrepo.New] init schema")
	}
	return &TokenRepo{db: db}, nil
}

func (tr *TokenRepo) Upsert(refreshToken *token.StoredRefreshToken) error {
	_, err := tr.db.Exec(`
		INSERT INTO refresh_tokens (token, user_id, iat) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, iat = excluded.iat`,
		refreshToken.Token, refreshToken.UserID, refreshToken.Iat)
	if err != nil {
		return errors.Wrap(err, "[TokenRepo.Upsert] exec")
	}
	return nil
}

func (tr *TokenRepo) Delete(tokenString string) error {
	if _, err := tr.db.Exec(`DELETE FROM refresh_tokens WHERE token = ?`, tokenString); err != nil {
		return errors.Wrap(err, "[TokenRepo.Delete] exec")
	}
	return nil
}

func (tr *TokenRepo) Get(tokenString string) (*token.StoredRefreshToken, error) {
	row := tr.db.QueryRow(`SELECT token, user_id, iat FROM refresh_tokens WHERE token = ?`, tokenString)
	var stored token.StoredRefreshToken
	if err := row.Scan(&stored.Token, &stored.UserID, &stored.Iat); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("refresh token not found")
		}
		return nil, errors.Wrap(err, "[TokenRepo.Get] scan")
	}
	return &stored, nil
}

func (tr *TokenRepo) GetByUserID(userID string) (*token.StoredRefreshToken, error) {
	row := tr.db.QueryRow(`SELECT token, user_id, iat FROM refresh_tokens WHERE user_id = ?`, userID)
	var stored token.StoredRefreshToken
	if err := row.Scan(&stored.Token, &stored.UserID, &stored.Iat); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("refresh token not found")
		}
		return nil, errors.Wrap(err, "[TokenRepo.GetByUserID] scan")
	}
	return &stored, nil
}

func (tr *TokenRepo) DeleteExpired(cutoff time.Time) error {
	if _, err := tr.db.Exec(`DELETE FROM refresh_tokens WHERE iat < ?`, cutoff); err != nil {
		return errors.Wrap(err, "[TokenRepo.DeleteExpired] exec")
	}
	return nil
}
