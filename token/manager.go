package token

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/filevault/filevault/users"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Pair is the token pair handed to clients on login, registration, and refresh.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Introspection represents the metadata of an access token.
// The 'active' field indicates the state of the token - if it's false, other
// fields may not be populated.
type Introspection struct {
	Active bool    `json:"active"`          // True or false - Is the token valid
	Sub    *string `json:"sub,omitempty"`   // User's unique ID
	Email  string  `json:"email,omitempty"` // User's email address
	Role   string  `json:"role,omitempty"`  // Role assigned to the user
	Type   string  `json:"type,omitempty"`  // Token type ("access")
	Exp    *int64  `json:"exp,omitempty"`   // Expiration
	Iat    *int64  `json:"iat,omitempty"`   // Issued at time
	Iss    *string `json:"iss,omitempty"`   // Issuer of the token
	Jti    string  `json:"jti,omitempty"`   // Unique token ID
}

type Manager struct {
	signer             Signer            // Token signing and verification
	issuer             string            // Issuer claim for minted tokens
	refreshRepo        RefreshTokenRepo  // Server-side refresh token storage
	userRepo           users.UserRepo    // Repository for user data
	revokedCache       RevokedTokenCache // Cache for revoked access tokens
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(refreshRepo RefreshTokenRepo, userRepo users.UserRepo, signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:       signer,
		refreshRepo:  refreshRepo,
		userRepo:     userRepo,
		revokedCache: NewInMemoryRevokedTokenCache(), // Default implementation
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 24 * time.Hour
	}
	if m.refreshTokenExpiry == 0 {
		m.refreshTokenExpiry = 30 * 24 * time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

func (m *Manager) CreateAccessToken(user *users.User) (string, error) {
	claims := jwt.MapClaims{
		"iss":   m.issuer,                                            // The issuer of the token
		"sub":   user.ID,                                             // The subject, the user's unique ID
		"email": user.Email,                                          // User's email address
		"role":  string(user.Role),                                   // Role for authorization decisions
		"typ":   "access",                                            // Token type, rejected where a refresh token is expected
		"iat":   int64(m.nowFunc().Unix()),                           // Issued At: the time at which the token was issued
		"exp":   int64(m.nowFunc().Add(m.accessTokenExpiry).Unix()),  // Expiry: when the token will expire
		"jti":   uuid.New().String(),                                 // Unique token ID for revocation
	}

	return m.signer.Sign(claims)
}

// CreateRefreshToken mints a new opaque refresh token for the user, replacing
// any token they already hold.
func (m *Manager) CreateRefreshToken(userID string) (string, error) {
	if existingToken, err := m.refreshRepo.GetByUserID(userID); err == nil && existingToken != nil {
		if err := m.refreshRepo.Delete(existingToken.Token); err != nil {
			return "", errors.Wrap(err, "Manager.CreateRefreshToken Delete")
		}
	}

	tokenBytes := make([]byte, 32) // 256 bits
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "Manager.CreateRefreshToken rand.Read")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.refreshRepo.Upsert(&StoredRefreshToken{
		Token:  tokenStr,
		UserID: userID,
		Iat:    m.nowFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "Manager.CreateRefreshToken Upsert")
	}

	return tokenStr, nil
}

// GeneratePair mints a fresh access/refresh token pair for the user.
func (m *Manager) GeneratePair(user *users.User) (*Pair, error) {
	accessToken, err := m.CreateAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.GeneratePair CreateAccessToken")
	}
	refreshToken, err := m.CreateRefreshToken(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.GeneratePair CreateRefreshToken")
	}
	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(m.accessTokenExpiry.Seconds()),
	}, nil
}

func (m *Manager) Introspection(rawToken string) (*Introspection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return &Introspection{Active: false}, nil
	}

	parsed, err := jwt.Parse(rawToken, m.signer.GetVerificationKey,
		jwt.WithTimeFunc(m.nowFunc), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return &Introspection{Active: false}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return &Introspection{Active: false}, errors.New("error extracting claims from token")
	}

	iss, _ := claims["iss"].(string)
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	typ, _ := claims["typ"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	jti, _ := claims["jti"].(string)

	iatInt := int64(iat)
	expInt := int64(exp)

	active := true
	if m.nowFunc().Unix() > expInt {
		active = false
	}

	// Check if token has been revoked
	if jti != "" && m.revokedCache.IsRevoked(jti) {
		active = false
	}

	return &Introspection{
		Active: active,
		Sub:    &sub,
		Email:  email,
		Role:   role,
		Type:   typ,
		Exp:    &expInt,
		Iat:    &iatInt,
		Iss:    &iss,
		Jti:    jti,
	}, nil
}

// Refresh exchanges a stored refresh token for a new token pair, rotating
// the refresh token. The old refresh token is invalid afterwards.
func (m *Manager) Refresh(refreshToken string) (*Pair, error) {
	rt, err := m.refreshRepo.Get(refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	if m.nowFunc().Sub(rt.Iat) > m.refreshTokenExpiry {
		_ = m.refreshRepo.Delete(refreshToken)
		return nil, errors.New("refresh token expired")
	}

	user, err := m.userRepo.GetByID(rt.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "user not found for refresh token")
	}

	if user.Blocked {
		return nil, errors.New("user is blocked")
	}

	return m.GeneratePair(user)
}

func (m *Manager) InvalidateRefreshToken(refreshToken string) {
	_ = m.refreshRepo.Delete(refreshToken)
}

// RevokeAccessToken revokes an access token by its JTI
func (m *Manager) RevokeAccessToken(rawToken string) error {
	parsed, err := jwt.Parse(rawToken, m.signer.GetVerificationKey, jwt.WithTimeFunc(m.nowFunc))
	if err != nil || !parsed.Valid {
		return errors.Wrap(err, "invalid token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("error extracting claims from token")
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return errors.New("token missing jti claim")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return errors.New("token missing exp claim")
	}

	expTime := time.Unix(int64(exp), 0)
	return m.revokedCache.Add(jti, expTime)
}

// CleanupRevokedTokens removes expired tokens from the revocation cache
func (m *Manager) CleanupRevokedTokens() {
	if m.revokedCache != nil {
		m.revokedCache.Cleanup()
	}
}

// CleanupExpiredRefreshTokens removes refresh tokens past their lifetime.
func (m *Manager) CleanupExpiredRefreshTokens() error {
	cutoff := m.nowFunc().Add(-m.refreshTokenExpiry)
	return m.refreshRepo.DeleteExpired(cutoff)
}
