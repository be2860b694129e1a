package config

import "time"

// Config holds runtime settings for the Blink desktop companion.
//
// The drop folder and remote root are the "preferences collaborator" values:
// the core treats them as opaque configuration injected at startup.
type Config struct {
	// Local folders and persistence.
	DropFolderPath string
	CacheDBPath    string
	TokenCachePath string
	LogFile        string

	// Remote drive.
	DriveBaseURL     string
	RemoteRootFolder string
	RootAlias        string

	// Blink backend API.
	BackendBaseURL string

	// OAuth2 device-code endpoints.
	OAuthClientID      string
	OAuthDeviceAuthURL string
	OAuthTokenURL      string
	OAuthScopes        []string

	// Timing.
	QuietPeriod     time.Duration // watcher write-stability window
	InterFileDelay  time.Duration // pause between files in processAll
	MetadataTimeout time.Duration // short timeout for metadata calls
	UploadTimeout   time.Duration // generous timeout for uploads
	TaxonomyTTL     time.Duration // tag taxonomy cache lifetime
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DropFolderPath = "drop"
	c.CacheDBPath = "blink.db"
	c.TokenCachePath = "token.json"
	c.LogFile = ""

	c.DriveBaseURL = "https://graph.microsoft.com/v1.0"
	c.RemoteRootFolder = "Blink Uploads"
	c.RootAlias = "Blink Drive"

	c.BackendBaseURL = "https://api.blinkapp.dev/v1"

	c.OAuthDeviceAuthURL = "https://login.microsoftonline.com/common/oauth2/v2.0/devicecode"
	c.OAuthTokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	c.OAuthScopes = []string{"Files.ReadWrite", "offline_access", "openid", "profile", "email"}

	c.QuietPeriod = 2 * time.Second
	c.InterFileDelay = 500 * time.Millisecond
	c.MetadataTimeout = 10 * time.Second
	c.UploadTimeout = 90 * time.Second
	c.TaxonomyTTL = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (.env supported), a JSON file (if given), and command-line
// flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
