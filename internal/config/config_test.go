package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadYAMLKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
timezone: Europe/Bucharest
schedule_url: https://api.example.com/twitch-ics
locale: RO
policy: next-n
basic_auth:
  username: admin
  password: s3cret
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Bucharest", cfg.Timezone)
	assert.Equal(t, "https://api.example.com/twitch-ics", cfg.ScheduleURL)
	assert.Equal(t, "ro", cfg.Locale)
	assert.Equal(t, "next-n", cfg.Policy)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
	assert.Equal(t, defaultExpandedCount, cfg.ExpandedCount)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
listen = "0.0.0.0:9000"
timezone = "America/Chicago"
refresh = "0 * * * *"
live_poll_seconds = 30
expanded_count = 0
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "America/Chicago", cfg.Timezone)
	assert.Equal(t, "0 * * * *", cfg.RefreshCron)
	assert.Equal(t, 30, cfg.LivePollSeconds)
	assert.Equal(t, 0, cfg.ExpandedCount)
}

func TestSaveRoundTripTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.ScheduleURL = "https://example.com/a.ics"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestNormalizeRepairsInvalidValues(t *testing.T) {
	cfg := &Config{
		Timezone:        "Mars/Olympus",
		DefaultZone:     "Nope/Nope",
		Hour12:          "sometimes",
		RefreshCron:     "every now and then",
		LivePollSeconds: -1,
		ExpandedCount:   -2,
		Policy:          "random",
		BasicAuth:       &BasicAuthConfig{Username: "admin"},
	}
	cfg.Normalize()

	assert.Equal(t, defaultTimezone, cfg.Timezone)
	assert.Empty(t, cfg.DefaultZone)
	assert.Equal(t, "auto", cfg.Hour12)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
	assert.Equal(t, defaultLivePoll, cfg.LivePollSeconds)
	assert.Equal(t, defaultExpandedCount, cfg.ExpandedCount)
	assert.Equal(t, defaultPolicy, cfg.Policy)
	assert.Nil(t, cfg.BasicAuth, "incomplete credentials disable auth")
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, defaultCacheDir, cfg.CacheDir)
}

func TestNormalizeRejectsHostZone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Local"
	cfg.DefaultZone = "Local"
	cfg.Normalize()

	assert.Equal(t, defaultTimezone, cfg.Timezone)
	assert.Empty(t, cfg.DefaultZone)
}
