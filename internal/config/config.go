package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SecurityConfig
	StorageConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type SecurityConfig interface {
	GetJWTSecret() string
	GetIssuer() string
	GetAccessTokenTTL() string
	GetRefreshTokenTTL() string
	GetMaxLoginAttempts() int
}

type StorageConfig interface {
	GetDatabasePath() string
	GetUploadDir() string
	GetMaxUploadBytes() int64
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
}

func New() Config {
	return mainConfig{}
}

// LoadDotEnv loads a .env file if one is present. A missing file is fine;
// real deployments set the environment directly.
func LoadDotEnv() {
	_ = godotenv.Load()
}
