package auth

import (
	"time"

	"github.com/filevault/filevault/security"
	"github.com/filevault/filevault/token"
	"github.com/filevault/filevault/users"
	"github.com/pkg/errors"
)

// Credentials is what a successful login, registration, or refresh hands back:
// the user record plus a fresh token pair.
type Credentials struct {
	User   *users.User `json:"user"`
	Tokens *token.Pair `json:"tokens"`
}

// RegisterParams carries the fields accepted at registration.
type RegisterParams struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// ProfileUpdate carries the mutable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Email       *string `json:"email"`
}

// Service provides login, registration, logout, profile management, and token
// refresh over a user repository and token manager.
type Service struct {
	users   users.UserRepo    // Repository for user data
	tokens  *token.Manager    // Create, verify, and rotate tokens
	monitor *security.Monitor // Audit trail and login throttling
	nowTime func() time.Time  // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new Service with required dependencies.
// Optional configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(userRepo users.UserRepo, tokenManager *token.Manager, monitor *security.Monitor, options ...ServiceOption) (*Service, error) {
	if userRepo == nil {
		return nil, errors.New("[auth.NewService] user repo is required")
	}
	if tokenManager == nil {
		return nil, errors.New("[auth.NewService] token manager is required")
	}
	if monitor == nil {
		return nil, errors.New("[auth.NewService] security monitor is required")
	}

	authService := &Service{
		users:   userRepo,
		tokens:  tokenManager,
		monitor: monitor,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(authService)
	}

	return authService, nil
}

// Register creates a new user and logs them in, returning a fresh session.
func (s *Service) Register(params RegisterParams) (*Credentials, error) {
	if err := users.ValidateEmail(params.Email); err != nil {
		return nil, err
	}
	if err := users.ValidatePasswordStrength(params.Password); err != nil {
		return nil, err
	}

	role := users.RoleType(params.Role)
	if params.Role == "" {
		role = users.RoleUser
	}
	if !users.ValidRole(role) {
		return nil, errors.New("invalid role")
	}

	if _, err := s.users.GetByEmail(params.Email); err == nil {
		return nil, EmailTakenErr
	}

	passwordHash, err := users.HashPassword(params.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] hash password")
	}

	user := &users.User{
		Email:        params.Email,
		DisplayName:  params.DisplayName,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    s.nowTime().UTC(),
	}
	if err := s.users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.Register] store user")
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] generate tokens")
	}

	s.monitor.Record(user.ID, security.EventRegister, nil)
	return &Credentials{User: user, Tokens: pair}, nil
}

// Login checks the credentials and mints a fresh session on success.
// Repeated failures within the lockout window lock the account.
func (s *Service) Login(email, password string) (*Credentials, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, InvalidCredentialsErr
	}

	allowed, err := s.monitor.LoginAllowed(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] lockout check")
	}
	if !allowed {
		s.monitor.Record(user.ID, security.EventLoginLocked, nil)
		return nil, AccountLockedErr
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		s.monitor.Record(user.ID, security.EventLoginFailure, nil)
		return nil, InvalidCredentialsErr
	}

	if user.Blocked {
		s.monitor.Record(user.ID, security.EventAccessDenied, map[string]string{"reason": "blocked"})
		return nil, UserBlockedErr
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login] generate tokens")
	}

	if err := s.users.SetLastLogin(email); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] set last login")
	}

	s.monitor.Record(user.ID, security.EventLoginSuccess, nil)
	return &Credentials{User: user, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token is rotated out.
func (s *Service) Refresh(refreshToken string) (*Credentials, error) {
	pair, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return nil, InvalidRefreshTokenErr
	}

	introspection, err := s.tokens.Introspection(pair.AccessToken)
	if err != nil || !introspection.Active {
		return nil, errors.Wrap(err, "[Service.Refresh] introspect new token")
	}

	user, err := s.users.GetByID(*introspection.Sub)
	if err != nil {
		return nil, errors.Wrap(err, UserNotFoundErr.Error())
	}

	s.monitor.Record(user.ID, security.EventTokenRefresh, nil)
	return &Credentials{User: user, Tokens: pair}, nil
}

// Logout revokes the access token and invalidates the refresh token.
// Revocation of an already-expired access token is not an error.
func (s *Service) Logout(accessToken, refreshToken string) error {
	if introspection, err := s.tokens.Introspection(accessToken); err == nil && introspection.Active {
		s.monitor.Record(*introspection.Sub, security.EventLogout, nil)
	}
	_ = s.tokens.RevokeAccessToken(accessToken)
	s.tokens.InvalidateRefreshToken(refreshToken)
	return nil
}

// VerifyAccess validates a raw access token and returns its introspection.
// Refresh tokens and revoked or expired tokens are rejected.
func (s *Service) VerifyAccess(rawToken string) (*token.Introspection, error) {
	introspection, err := s.tokens.Introspection(rawToken)
	if err != nil || !introspection.Active {
		return nil, InvalidAccessTokenErr
	}
	if introspection.Type != "access" {
		return nil, InvalidAccessTokenErr
	}
	return introspection, nil
}

// Profile returns the user's profile.
func (s *Service) Profile(userID string) (*users.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, UserNotFoundErr
	}
	return user, nil
}

// UpdateProfile applies the provided changes to the user's profile.
func (s *Service) UpdateProfile(userID string, update ProfileUpdate) (*users.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, UserNotFoundErr
	}

	if update.Email != nil && *update.Email != user.Email {
		if err := users.ValidateEmail(*update.Email); err != nil {
			return nil, err
		}
		if _, err := s.users.GetByEmail(*update.Email); err == nil {
			return nil, EmailTakenErr
		}
		user.Email = *update.Email
	}
	if update.DisplayName != nil {
		user.DisplayName = *update.DisplayName
	}

	if err := s.users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateProfile] store user")
	}

	s.monitor.Record(userID, security.EventProfileUpdate, nil)
	return user, nil
}
