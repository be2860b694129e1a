package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/flagx"
	"github.com/aussiephantom/blinkapp-desktop/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "2s" or
// as integer nanoseconds. After parsing, non-zero values are copied into the
// runtime Config.
type JsonConfig struct {
	DropFolderPath     string         `json:"drop_folder_path"`
	CacheDBPath        string         `json:"cache_db_path"`
	TokenCachePath     string         `json:"token_cache_path"`
	LogFile            string         `json:"log_file"`
	DriveBaseURL       string         `json:"drive_base_url"`
	RemoteRootFolder   string         `json:"remote_root_folder"`
	RootAlias          string         `json:"root_alias"`
	BackendBaseURL     string         `json:"backend_base_url"`
	OAuthClientID      string         `json:"oauth_client_id"`
	OAuthDeviceAuthURL string         `json:"oauth_device_auth_url"`
	OAuthTokenURL      string         `json:"oauth_token_url"`
	OAuthScopes        []string       `json:"oauth_scopes"`
	QuietPeriod        timex.Duration `json:"quiet_period"`
	InterFileDelay     timex.Duration `json:"inter_file_delay"`
	MetadataTimeout    timex.Duration `json:"metadata_timeout"`
	UploadTimeout      timex.Duration `json:"upload_timeout"`
	TaxonomyTTL        timex.Duration `json:"taxonomy_ttl"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags; when absent, nothing is loaded.
// Read or unmarshal errors panic, matching the fail-fast startup policy.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	setStr(&cfg.DropFolderPath, jc.DropFolderPath)
	setStr(&cfg.CacheDBPath, jc.CacheDBPath)
	setStr(&cfg.TokenCachePath, jc.TokenCachePath)
	setStr(&cfg.LogFile, jc.LogFile)
	setStr(&cfg.DriveBaseURL, jc.DriveBaseURL)
	setStr(&cfg.RemoteRootFolder, jc.RemoteRootFolder)
	setStr(&cfg.RootAlias, jc.RootAlias)
	setStr(&cfg.BackendBaseURL, jc.BackendBaseURL)
	setStr(&cfg.OAuthClientID, jc.OAuthClientID)
	setStr(&cfg.OAuthDeviceAuthURL, jc.OAuthDeviceAuthURL)
	setStr(&cfg.OAuthTokenURL, jc.OAuthTokenURL)

	if len(jc.OAuthScopes) > 0 {
		cfg.OAuthScopes = jc.OAuthScopes
	}

	setDur(&cfg.QuietPeriod, jc.QuietPeriod)
	setDur(&cfg.InterFileDelay, jc.InterFileDelay)
	setDur(&cfg.MetadataTimeout, jc.MetadataTimeout)
	setDur(&cfg.UploadTimeout, jc.UploadTimeout)
	setDur(&cfg.TaxonomyTTL, jc.TaxonomyTTL)
}
