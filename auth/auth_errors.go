package auth

import "errors"

var (
	InvalidCredentialsErr  = errors.New("invalid credentials")
	InvalidAccessTokenErr  = errors.New("invalid access token")
	InvalidRefreshTokenErr = errors.New("invalid refresh token")
	UserNotFoundErr        = errors.New("user not found")
	UserBlockedErr         = errors.New("user blocked")
	AccountLockedErr       = errors.New("account temporarily locked")
	EmailTakenErr          = errors.New("this email has already been registered")
)
