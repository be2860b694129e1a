package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment. A .env
// file in the working directory is loaded first (missing file is fine) and
// never overrides variables already set in the environment.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	set := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set("BLINK_DROP_FOLDER", &cfg.DropFolderPath)
	set("BLINK_CACHE_DB", &cfg.CacheDBPath)
	set("BLINK_TOKEN_CACHE", &cfg.TokenCachePath)
	set("BLINK_LOG_FILE", &cfg.LogFile)
	set("BLINK_DRIVE_BASE_URL", &cfg.DriveBaseURL)
	set("BLINK_REMOTE_ROOT", &cfg.RemoteRootFolder)
	set("BLINK_BACKEND_BASE_URL", &cfg.BackendBaseURL)
	set("BLINK_OAUTH_CLIENT_ID", &cfg.OAuthClientID)
	set("BLINK_OAUTH_DEVICE_AUTH_URL", &cfg.OAuthDeviceAuthURL)
	set("BLINK_OAUTH_TOKEN_URL", &cfg.OAuthTokenURL)

	if v := os.Getenv("BLINK_OAUTH_SCOPES"); v != "" {
		cfg.OAuthScopes = strings.Fields(v)
	}
}
