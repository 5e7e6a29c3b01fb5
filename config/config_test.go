package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FEED_URL", "LOCATION_PREFIX", "FEED_TIMEOUT", "CALDAV_URL", "CALDAV_USERNAME",
		"CALDAV_PASSWORD", "CALDAV_CALENDAR", "DATABASE_PATH", "TIMEZONE", "WEBHOOK_URL",
		"SERVER_PORT", "API_USERNAME", "API_PASSWORD", "ADMIN_CHAT_ID", "ALLOWED_CHAT_IDS",
	} {
		t.Setenv(key, "")
	}
	// registered first so the unset below is undone after the test
	t.Setenv("SYNC_SCHEDULE", "")
	os.Unsetenv("SYNC_SCHEDULE")
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
}

func TestLoadDefaults(t *testing.T) {
	setupEnv(t)
	t.Setenv("FEED_URL", "https://example.com/rooms.ics")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/rooms.ics", cfg.FeedURL)
	assert.Equal(t, "", cfg.LocationPrefix)
	assert.Equal(t, 30*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "", cfg.SyncSchedule)
	assert.Equal(t, "./data/sallebot.db", cfg.DatabasePath)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, time.UTC, cfg.Timezone)
	assert.False(t, cfg.HasCalDAV())
	assert.False(t, cfg.APIEnabled())
	assert.True(t, cfg.IsAllowedChat(42))
}

func TestLoadRequiresToken(t *testing.T) {
	setupEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("FEED_URL", "https://example.com/rooms.ics")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresFeed(t *testing.T) {
	setupEnv(t)

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CALDAV_URL", "https://dav.example.com")
	t.Setenv("CALDAV_USERNAME", "rooms")
	t.Setenv("CALDAV_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.HasCalDAV())
}

func TestLoadFromFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "sallebot.toml")
	content := `
timezone = "Europe/Paris"

[provider]
url = "https://example.com/file.ics"
location_prefix = "SALLE-"
timeout = "5s"

[sync]
schedule = "0 */6 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/file.ics", cfg.FeedURL)
	assert.Equal(t, "SALLE-", cfg.LocationPrefix)
	assert.Equal(t, 5*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "0 */6 * * *", cfg.SyncSchedule)
	assert.Equal(t, "Europe/Paris", cfg.Timezone.String())

	t.Run("EnvOverridesFile", func(t *testing.T) {
		t.Setenv("FEED_URL", "https://example.com/env.ics")
		t.Setenv("SYNC_SCHEDULE", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/env.ics", cfg.FeedURL)
		assert.Equal(t, "", cfg.SyncSchedule)
	})
}

func TestLoadInvalidFile(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "sallebot.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider\nurl = "), 0644))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadSyncSchedule(t *testing.T) {
	setupEnv(t)
	t.Setenv("FEED_URL", "https://example.com/rooms.ics")

	for _, schedule := range []string{"@every 6h", "@daily", "30 7 * * 1-5"} {
		t.Setenv("SYNC_SCHEDULE", schedule)
		cfg, err := Load()
		require.NoError(t, err, schedule)
		assert.Equal(t, schedule, cfg.SyncSchedule)
	}

	for _, schedule := range []string{"every now and then", "* * *", "61 * * * *"} {
		t.Setenv("SYNC_SCHEDULE", schedule)
		_, err := Load()
		assert.Error(t, err, schedule)
	}
}

func TestAllowedChats(t *testing.T) {
	setupEnv(t)
	t.Setenv("FEED_URL", "https://example.com/rooms.ics")
	t.Setenv("ALLOWED_CHAT_IDS", "12, -1001234")
	t.Setenv("ADMIN_CHAT_ID", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{12, -1001234}, cfg.AllowedChats)
	assert.Equal(t, int64(12), cfg.AdminChatID)
	assert.True(t, cfg.IsAllowedChat(-1001234))
	assert.False(t, cfg.IsAllowedChat(99))

	t.Setenv("ALLOWED_CHAT_IDS", "abc")
	_, err = Load()
	assert.Error(t, err)
}
