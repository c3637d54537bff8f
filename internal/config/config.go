// Package config loads service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds every setting of the service
type Config struct {
	DBType       string
	DatabasePath string
	DatabaseURL  string

	TelegramToken string
	AdminChatIDs  []int64

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	ItemsPerSession    int
	NewItemsPerSession int
	LevelHistoryMode   string

	NotificationStartHour int
	NotificationEndHour   int

	LogLevel    string
	LogFile     string
	MetricsAddr string
}

// Load reads an optional .env file from files (default ".env") and then the
// process environment. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load %s", file)
		}
	}

	cfg := &Config{
		DBType:           getEnv("DB_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "data/korbot.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		LevelHistoryMode: getEnv("LEVEL_HISTORY_MODE", "always"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
	}

	var err error
	if cfg.ItemsPerSession, err = getInt("ITEMS_PER_SESSION", 3); err != nil {
		return nil, err
	}
	if cfg.NewItemsPerSession, err = getInt("NEW_ITEMS_PER_SESSION", 2); err != nil {
		return nil, err
	}
	if cfg.NotificationStartHour, err = getInt("NOTIFICATION_START_HOUR", 4); err != nil {
		return nil, err
	}
	if cfg.NotificationEndHour, err = getInt("NOTIFICATION_END_HOUR", 18); err != nil {
		return nil, err
	}
	if cfg.AdminChatIDs, err = parseIDs(os.Getenv("ADMIN_CHAT_IDS")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable together
func (c *Config) Validate() error {
	switch c.DBType {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DB_TYPE=postgres")
		}
	default:
		return errors.Errorf("unsupported DB_TYPE %q", c.DBType)
	}
	if c.ItemsPerSession <= 0 {
		return errors.Errorf("ITEMS_PER_SESSION must be positive, got %d", c.ItemsPerSession)
	}
	if c.NewItemsPerSession < 0 {
		return errors.Errorf("NEW_ITEMS_PER_SESSION must not be negative, got %d", c.NewItemsPerSession)
	}
	for name, hour := range map[string]int{
		"NOTIFICATION_START_HOUR": c.NotificationStartHour,
		"NOTIFICATION_END_HOUR":   c.NotificationEndHour,
	} {
		if hour < 0 || hour > 23 {
			return errors.Errorf("%s must be between 0 and 23, got %d", name, hour)
		}
	}
	if c.NotificationStartHour > c.NotificationEndHour {
		return errors.New("NOTIFICATION_START_HOUR must not be after NOTIFICATION_END_HOUR")
	}
	switch c.LevelHistoryMode {
	case "always", "on_change":
	default:
		return errors.Errorf("unsupported LEVEL_HISTORY_MODE %q", c.LevelHistoryMode)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid admin chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
