package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	dbPathVar      = "DATABASE_PATH"
	uploadDirVar   = "UPLOAD_DIR"
	jwtSecretVar   = "JWT_SECRET_KEY"
	issuerVar      = "TOKEN_ISSUER"
	accessTTLVar   = "ACCESS_TOKEN_TTL"
	refreshTTLVar  = "REFRESH_TOKEN_TTL"
	maxUploadVar   = "MAX_UPLOAD_BYTES"
	maxAttemptsVar = "MAX_LOGIN_ATTEMPTS"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ SecurityConfig = EnvVars{}
var _ StorageConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "File Vault")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetJWTSecret() string {
	return GetEnv(jwtSecretVar, "jwt-secret-string")
}

func (EnvVars) GetIssuer() string {
	return GetEnv(issuerVar, "filevault")
}

// GetAccessTokenTTL returns the access token lifetime as a Go duration string.
func (EnvVars) GetAccessTokenTTL() string {
	return GetEnv(accessTTLVar, "24h")
}

// GetRefreshTokenTTL returns the refresh token lifetime as a Go duration string.
func (EnvVars) GetRefreshTokenTTL() string {
	return GetEnv(refreshTTLVar, "720h")
}

func (EnvVars) GetMaxLoginAttempts() int {
	n, err := strconv.Atoi(GetEnv(maxAttemptsVar, "5"))
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

func (EnvVars) GetDatabasePath() string {
	return GetEnv(dbPathVar, "./data/filevault.db")
}

func (EnvVars) GetUploadDir() string {
	return GetEnv(uploadDirVar, "./uploads")
}

func (EnvVars) GetMaxUploadBytes() int64 {
	n, err := strconv.ParseInt(GetEnv(maxUploadVar, ""), 10, 64)
	if err != nil || n <= 0 {
		return 100 << 20 // 100MB
	}
	return n
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
