package token

import "time"

// StoredRefreshToken is the server-side record backing an opaque refresh token.
// The client only ever sees the Token field; everything else is validation
// metadata.
type StoredRefreshToken struct {
	Token  string    // The random token string (sent to client)
	UserID string    // Owner of the token
	Iat    time.Time // Issued at time
}

// RefreshTokenRepo manages server-side storage of refresh token metadata,
// keyed by the opaque token string.
type RefreshTokenRepo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByUserID(userID string) (*StoredRefreshToken, error)
	DeleteExpired(cutoff time.Time) error
}
