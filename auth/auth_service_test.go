package auth_test

import (
	"testing"
	"time"

	"github.com/filevault/filevault/auth"
	"github.com/filevault/filevault/security"
	fakeauditrepo "github.com/filevault/filevault/security/repofake"
	"github.com/filevault/filevault/token"
	tokenrepofake "github.com/filevault/filevault/token/repofake"
	"github.com/filevault/filevault/users"
	fakeuserrepo "github.com/filevault/filevault/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	secretStr        = "1234"
	issuer           = "com.testissuer"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "Password123"
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo     users.UserRepo
	auditRepo    security.AuditRepo
	tokenManager *token.Manager
	monitor      *security.Monitor
	service      *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	ur := fakeuserrepo.NewFakeUserRepo()
	ar := fakeauditrepo.NewFakeAuditRepo()

	tm := token.New(
		tokenrepofake.NewFakeTokensRepo(),
		ur,
		token.NewHMACSigner(secretStr),
		token.WithIssuer(issuer),
	)

	monitor, err := security.NewMonitor(ar)
	require.NoError(t, err)

	service, err := auth.NewService(ur, tm, monitor)
	require.NoError(t, err)

	return &testFixture{
		userRepo:     ur,
		auditRepo:    ar,
		tokenManager: tm,
		monitor:      monitor,
		service:      service,
	}
}

// createTestUser creates and stores a user with a hashed password.
func (f *testFixture) createTestUser(t *testing.T, email, password string, blocked bool) *users.User {
	t.Helper()

	passwordHash, err := users.HashPassword(password)
	require.NoError(t, err)

	user := &users.User{
		Email:        email,
		DisplayName:  "John Doe",
		PasswordHash: passwordHash,
		Role:         users.RoleUser,
		CreatedAt:    time.Now().UTC(),
		Verified:     true,
		Blocked:      blocked,
	}
	require.NoError(t, f.userRepo.Upsert(user))
	return user
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	f := setupTestFixture(t)

	credentials, err := f.service.Register(auth.RegisterParams{
		Email:       testUserEmail,
		Password:    testUserPassword,
		DisplayName: "John Doe",
	})
	require.NoError(t, err)
	require.NotNil(t, credentials.User)
	require.NotEmpty(t, credentials.User.ID)
	require.Equal(t, users.RoleUser, credentials.User.Role)
	require.NotEmpty(t, credentials.Tokens.AccessToken)
	require.NotEmpty(t, credentials.Tokens.RefreshToken)

	stored, err := f.userRepo.GetByEmail(testUserEmail)
	require.NoError(t, err)
	require.Equal(t, credentials.User.ID, stored.ID)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Register(auth.RegisterParams{
		Email:    testUserEmail,
		Password: "short",
	})
	require.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUserEmail, testUserPassword, false)

	_, err := f.service.Register(auth.RegisterParams{
		Email:    testUserEmail,
		Password: testUserPassword,
	})
	require.ErrorIs(t, err, auth.EmailTakenErr)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Register(auth.RegisterParams{
		Email:    testUserEmail,
		Password: testUserPassword,
		Role:     "superuser",
	})
	require.Error(t, err)
}

func TestLoginReturnsUserAndTokens(t *testing.T) {
	f := setupTestFixture(t)
	user := f.createTestUser(t, testUserEmail, testUserPassword, false)

	credentials, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Equal(t, user.ID, credentials.User.ID)
	require.NotEmpty(t, credentials.Tokens.AccessToken)
	require.NotEmpty(t, credentials.Tokens.RefreshToken)

	introspection, err := f.service.VerifyAccess(credentials.Tokens.AccessToken)
	require.NoError(t, err)
	require.True(t, introspection.Active)
	require.Equal(t, user.ID, *introspection.Sub)
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUserEmail, testUserPassword, false)

	_, err := f.service.Login(testUserEmail, "WrongPassword1")
	require.ErrorIs(t, err, auth.InvalidCredentialsErr)
}

func TestLoginUnknownUser(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login("nobody@example.com", testUserPassword)
	require.ErrorIs(t, err, auth.InvalidCredentialsErr)
}

func TestLoginBlockedUser(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUserEmail, testUserPassword, true)

	_, err := f.service.Login(testUserEmail, testUserPassword)
	require.ErrorIs(t, err, auth.UserBlockedErr)
}

func TestLoginLockedAfterRepeatedFailures(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUserEmail, testUserPassword, false)

	for i := 0; i < 5; i++ {
		_, err := f.service.Login(testUserEmail, "WrongPassword1")
		require.ErrorIs(t, err, auth.InvalidCredentialsErr)
	}

	_, err := f.service.Login(testUserEmail, testUserPassword)
	require.ErrorIs(t, err, auth.AccountLockedErr)
}

func TestRefreshRotatesTokenPair(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUserEmail, testUserPassword, false)

	credentials, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)

	refreshed, err := f.service.Refresh(credentials.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.Tokens.AccessToken)
	require.NotEqual(t, credentials.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)
	require.Equal(t, credentials.User.ID, refreshed.User.ID)

	// The old refresh token was rotated out and must no longer work.
	_, err = f.service.Refresh(credentials.Tokens.RefreshToken)
	require.ErrorIs(t, err, auth.InvalidRefreshTokenErr)
}

func TestRefreshWithUnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Refresh("no-such-token")
	require.ErrorIs(t, err, auth.InvalidRefreshTokenErr)
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUserEmail, testUserPassword, false)

	credentials, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(credentials.Tokens.AccessToken, credentials.Tokens.RefreshToken))

	_, err = f.service.VerifyAccess(credentials.Tokens.AccessToken)
	require.ErrorIs(t, err, auth.InvalidAccessTokenErr)

	_, err = f.service.Refresh(credentials.Tokens.RefreshToken)
	require.ErrorIs(t, err, auth.InvalidRefreshTokenErr)
}

func TestVerifyAccessRejectsRefreshTokenString(t *testing.T) {
	f := setupTestFixture(t)
	f.createTestUser(t, testUserEmail, testUserPassword, false)

	credentials, err := f.service.Login(testUserEmail, testUserPassword)
	require.NoError(t, err)

	_, err = f.service.VerifyAccess(credentials.Tokens.RefreshToken)
	require.ErrorIs(t, err, auth.InvalidAccessTokenErr)
}

func TestProfileRoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	user := f.createTestUser(t, testUserEmail, testUserPassword, false)

	profile, err := f.service.Profile(user.ID)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, profile.Email)

	newName := "Johnny"
	updated, err := f.service.UpdateProfile(user.ID, auth.ProfileUpdate{DisplayName: &newName})
	require.NoError(t, err)
	require.Equal(t, newName, updated.DisplayName)

	profile, err = f.service.Profile(user.ID)
	require.NoError(t, err)
	require.Equal(t, newName, profile.DisplayName)
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	f := setupTestFixture(t)
	user := f.createTestUser(t, testUserEmail, testUserPassword, false)
	f.createTestUser(t, "jane.doe@example.com", testUserPassword, false)

	taken := "jane.doe@example.com"
	_, err := f.service.UpdateProfile(user.ID, auth.ProfileUpdate{Email: &taken})
	require.ErrorIs(t, err, auth.EmailTakenErr)
}

func TestUpdateProfileFailureLeavesUserUntouched(t *testing.T) {
	f := setupTestFixture(t)
	user := f.createTestUser(t, testUserEmail, testUserPassword, false)

	bad := "not-an-email"
	_, err := f.service.UpdateProfile(user.ID, auth.ProfileUpdate{Email: &bad})
	require.Error(t, err)

	profile, err := f.service.Profile(user.ID)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, profile.Email)
}
