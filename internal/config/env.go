package config

import (
	"os"
	"strconv"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Environment variables overriding the object store settings.
const (
	EnvS3Endpoint  = "TUGBOAT_S3_ENDPOINT"
	EnvS3AccessKey = "TUGBOAT_S3_ACCESS_KEY"
	EnvS3SecretKey = "TUGBOAT_S3_SECRET_KEY"
	EnvS3UseSSL    = "TUGBOAT_S3_USE_SSL"
)

func applyEnv(cfg *models.Config) {
	s := &cfg.ObjectStore
	s.Endpoint = envString(EnvS3Endpoint, s.Endpoint)
	s.AccessKey = envString(EnvS3AccessKey, s.AccessKey)
	s.SecretKey = envString(EnvS3SecretKey, s.SecretKey)
	s.UseSSL = envBool(EnvS3UseSSL, s.UseSSL)
}

func envString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// envBool ignores values that do not parse.
func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
