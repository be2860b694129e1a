package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "drop", c.DropFolderPath)
	assert.Equal(t, "blink.db", c.CacheDBPath)
	assert.Equal(t, 2*time.Second, c.QuietPeriod)
	assert.Equal(t, 500*time.Millisecond, c.InterFileDelay)
	assert.Equal(t, 90*time.Second, c.UploadTimeout)
	assert.NotEmpty(t, c.OAuthScopes)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "drop", cfg.DropFolderPath)
	assert.Equal(t, 2*time.Second, cfg.QuietPeriod)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("BLINK_DROP_FOLDER", "/tmp/inbox")
	t.Setenv("BLINK_OAUTH_SCOPES", "Files.ReadWrite offline_access")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "/tmp/inbox", c.DropFolderPath)
	assert.Equal(t, []string{"Files.ReadWrite", "offline_access"}, c.OAuthScopes)
}
