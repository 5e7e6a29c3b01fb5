package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

const DefaultConfigPath = "sallebot.toml"

type Config struct {
	TelegramToken  string
	FeedURL        string
	LocationPrefix string
	FeedTimeout    time.Duration
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
	DatabasePath   string
	SyncSchedule   string
	Timezone       *time.Location
	WebhookURL     string
	ServerPort     string
	APIUsername    string
	APIPassword    string
	AdminChatID    int64
	AllowedChats   []int64
}

// fileConfig mirrors sallebot.toml
type fileConfig struct {
	Provider struct {
		URL            string `toml:"url"`
		LocationPrefix string `toml:"location_prefix"`
		Timeout        string `toml:"timeout"`
	} `toml:"provider"`
	CalDAV struct {
		URL      string `toml:"url"`
		Username string `toml:"username"`
		Calendar string `toml:"calendar"`
	} `toml:"caldav"`
	Sync struct {
		Schedule string `toml:"schedule"`
	} `toml:"sync"`
	Timezone string `toml:"timezone"`
}

// Load reads the optional TOML file named by CONFIG_PATH, then lets
// environment variables override it.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	cfg := &Config{
		TelegramToken:  token,
		FeedURL:        getEnv("FEED_URL", fc.Provider.URL),
		LocationPrefix: getEnv("LOCATION_PREFIX", fc.Provider.LocationPrefix),
		CalDAVURL:      getEnv("CALDAV_URL", fc.CalDAV.URL),
		CalDAVUsername: getEnv("CALDAV_USERNAME", fc.CalDAV.Username),
		CalDAVPassword: os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar: getEnv("CALDAV_CALENDAR", fc.CalDAV.Calendar),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/sallebot.db"),
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		APIUsername:    os.Getenv("API_USERNAME"),
		APIPassword:    os.Getenv("API_PASSWORD"),
	}

	if cfg.FeedURL == "" && !cfg.HasCalDAV() {
		return nil, fmt.Errorf("FEED_URL (or [provider] url) is required unless CalDAV is configured")
	}

	// Periodic resync is opt-in; an explicitly empty SYNC_SCHEDULE turns off the file's schedule
	cfg.SyncSchedule = fc.Sync.Schedule
	if v, ok := os.LookupEnv("SYNC_SCHEDULE"); ok {
		cfg.SyncSchedule = v
	}
	if cfg.SyncSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SyncSchedule); err != nil {
			return nil, fmt.Errorf("invalid SYNC_SCHEDULE %q: %w", cfg.SyncSchedule, err)
		}
	}

	timeout, err := time.ParseDuration(getEnv("FEED_TIMEOUT", getOr(fc.Provider.Timeout, "30s")))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_TIMEOUT: %w", err)
	}
	cfg.FeedTimeout = timeout

	tz, err := time.LoadLocation(getEnv("TIMEZONE", getOr(fc.Timezone, "UTC")))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	if v := os.Getenv("ADMIN_CHAT_ID"); v != "" {
		cfg.AdminChatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_CHAT_ID must be a number")
		}
	}

	cfg.AllowedChats, err = parseIDList(os.Getenv("ALLOWED_CHAT_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_CHAT_IDS: %w", err)
	}

	return cfg, nil
}

// HasCalDAV reports whether bookings are read from a CalDAV server instead of FEED_URL
func (c *Config) HasCalDAV() bool {
	return c.CalDAVURL != "" && c.CalDAVUsername != "" && c.CalDAVPassword != ""
}

// IsAllowedChat returns true if the bot may answer in chatID. An empty list allows every chat.
func (c *Config) IsAllowedChat(chatID int64) bool {
	if len(c.AllowedChats) == 0 {
		return true
	}
	for _, id := range c.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// APIEnabled returns true if REST API credentials are set
func (c *Config) APIEnabled() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getOr(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
