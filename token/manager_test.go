package token_test

import (
	"testing"
	"time"

	"github.com/filevault/filevault/token"
	tokenrepofake "github.com/filevault/filevault/token/repofake"
	"github.com/filevault/filevault/users"
	fakeuserrepo "github.com/filevault/filevault/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "1234"
	issuer    = "com.testissuer"
)

type managerFixture struct {
	userRepo    users.UserRepo
	refreshRepo token.RefreshTokenRepo
	manager     *token.Manager
	user        *users.User
	now         time.Time
}

func setupManager(t *testing.T, options ...token.ManagerOption) *managerFixture {
	t.Helper()

	ur := fakeuserrepo.NewFakeUserRepo()
	rr := tokenrepofake.NewFakeTokensRepo()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	opts := append([]token.ManagerOption{
		token.WithIssuer(issuer),
		token.WithNowFunc(func() time.Time { return now }),
	}, options...)

	manager := token.New(rr, ur, token.NewHMACSigner(secretStr), opts...)

	user := &users.User{
		Email: "john.doe@example.com",
		Role:  users.RoleUser,
	}
	require.NoError(t, ur.Upsert(user))

	return &managerFixture{
		userRepo:    ur,
		refreshRepo: rr,
		manager:     manager,
		user:        user,
		now:         now,
	}
}

func TestAccessTokenClaims(t *testing.T) {
	f := setupManager(t)

	accessToken, err := f.manager.CreateAccessToken(f.user)
	require.NoError(t, err)

	introspection, err := f.manager.Introspection(accessToken)
	require.NoError(t, err)
	require.True(t, introspection.Active)
	require.Equal(t, f.user.ID, *introspection.Sub)
	require.Equal(t, f.user.Email, introspection.Email)
	require.Equal(t, string(users.RoleUser), introspection.Role)
	require.Equal(t, "access", introspection.Type)
	require.Equal(t, issuer, *introspection.Iss)
	require.NotEmpty(t, introspection.Jti)
	require.Equal(t, f.now.Unix(), *introspection.Iat)
}

func TestIntrospectionInactiveAfterExpiry(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := now

	ur := fakeuserrepo.NewFakeUserRepo()
	manager := token.New(tokenrepofake.NewFakeTokensRepo(), ur, token.NewHMACSigner(secretStr),
		token.WithNowFunc(func() time.Time { return clock }),
		token.WithTokenExpiry(time.Hour, 24*time.Hour),
	)

	user := &users.User{Email: "john.doe@example.com", Role: users.RoleUser}
	require.NoError(t, ur.Upsert(user))

	accessToken, err := manager.CreateAccessToken(user)
	require.NoError(t, err)

	clock = now.Add(2 * time.Hour)

	introspection, _ := manager.Introspection(accessToken)
	require.False(t, introspection.Active)
}

func TestIntrospectionEmptyToken(t *testing.T) {
	f := setupManager(t)

	introspection, err := f.manager.Introspection("")
	require.NoError(t, err)
	require.False(t, introspection.Active)
}

func TestIntrospectionGarbageToken(t *testing.T) {
	f := setupManager(t)

	introspection, _ := f.manager.Introspection("not.a.jwt")
	require.False(t, introspection.Active)
}

func TestIntrospectionWrongSigningKey(t *testing.T) {
	f := setupManager(t)

	accessToken, err := f.manager.CreateAccessToken(f.user)
	require.NoError(t, err)

	other := token.New(tokenrepofake.NewFakeTokensRepo(), f.userRepo, token.NewHMACSigner("different-secret"),
		token.WithNowFunc(func() time.Time { return f.now }))

	introspection, _ := other.Introspection(accessToken)
	require.False(t, introspection.Active)
}

func TestRefreshTokenReplacedPerUser(t *testing.T) {
	f := setupManager(t)

	first, err := f.manager.CreateRefreshToken(f.user.ID)
	require.NoError(t, err)
	second, err := f.manager.CreateRefreshToken(f.user.ID)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = f.refreshRepo.Get(first)
	require.Error(t, err)
	stored, err := f.refreshRepo.Get(second)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, stored.UserID)
}

func TestRefreshRotates(t *testing.T) {
	f := setupManager(t)

	pair, err := f.manager.GeneratePair(f.user)
	require.NoError(t, err)

	newPair, err := f.manager.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	_, err = f.manager.Refresh(pair.RefreshToken)
	require.Error(t, err)
}

func TestRefreshExpiredToken(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := now

	ur := fakeuserrepo.NewFakeUserRepo()
	manager := token.New(tokenrepofake.NewFakeTokensRepo(), ur, token.NewHMACSigner(secretStr),
		token.WithNowFunc(func() time.Time { return clock }),
		token.WithTokenExpiry(time.Hour, 24*time.Hour),
	)

	user := &users.User{Email: "john.doe@example.com", Role: users.RoleUser}
	require.NoError(t, ur.Upsert(user))

	refreshToken, err := manager.CreateRefreshToken(user.ID)
	require.NoError(t, err)

	clock = now.Add(25 * time.Hour)
	_, err = manager.Refresh(refreshToken)
	require.Error(t, err)
}

func TestRefreshBlockedUser(t *testing.T) {
	f := setupManager(t)

	refreshToken, err := f.manager.CreateRefreshToken(f.user.ID)
	require.NoError(t, err)

	f.user.Blocked = true
	require.NoError(t, f.userRepo.Upsert(f.user))

	_, err = f.manager.Refresh(refreshToken)
	require.Error(t, err)
}

func TestRevokeAccessToken(t *testing.T) {
	f := setupManager(t)

	accessToken, err := f.manager.CreateAccessToken(f.user)
	require.NoError(t, err)

	require.NoError(t, f.manager.RevokeAccessToken(accessToken))

	introspection, err := f.manager.Introspection(accessToken)
	require.NoError(t, err)
	require.False(t, introspection.Active)
}

func TestCleanupExpiredRefreshTokens(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := now

	ur := fakeuserrepo.NewFakeUserRepo()
	rr := tokenrepofake.NewFakeTokensRepo()
	manager := token.New(rr, ur, token.NewHMACSigner(secretStr),
		token.WithNowFunc(func() time.Time { return clock }),
		token.WithTokenExpiry(time.Hour, 24*time.Hour),
	)

	user := &users.User{Email: "john.doe@example.com", Role: users.RoleUser}
	require.NoError(t, ur.Upsert(user))

	refreshToken, err := manager.CreateRefreshToken(user.ID)
	require.NoError(t, err)

	clock = now.Add(48 * time.Hour)
	require.NoError(t, manager.CleanupExpiredRefreshTokens())

	_, err = rr.Get(refreshToken)
	require.Error(t, err)
}
