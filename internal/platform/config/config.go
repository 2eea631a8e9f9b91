package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DiscordBotToken   string `env:"DISCORD_BOT_TOKEN"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
	GuildID           string `env:"GUILD_ID"`
	BoardChannelID    string `env:"BOARD_CHANNEL_ID"`
	MinReactionCount  int    `env:"MIN_REACTION_COUNT" default:"3"`

	StoreDriver string `env:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" default:"reactboard.db"`
	RedisURL    string `env:"REDIS_URL"`

	StoreTimeout time.Duration `env:"STORE_TIMEOUT" default:"5s"`
	LockTimeout  time.Duration `env:"LOCK_TIMEOUT" default:"10s"`
	EventTimeout time.Duration `env:"EVENT_TIMEOUT" default:"30s"`

	Workers     int     `env:"WORKERS" default:"8"`
	QueueSize   int     `env:"QUEUE_SIZE" default:"256"`
	PublishRate float64 `env:"PUBLISH_RATE" default:"5"`

	APIRate  float64 `env:"API_RATE" default:"5"`
	APIBurst int     `env:"API_BURST" default:"10"`
}

// Load reads and validates the full service configuration.
func Load() (*Config, error) {
	return load(validate)
}

// LoadStore reads the same environment as Load but only validates the store settings.
// Used by tooling that never talks to Discord.
func LoadStore() (*Config, error) {
	return load(validateStore)
}

func load(check func(*Config) error) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := check(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := []struct{ name, value string }{
		{"DISCORD_BOT_TOKEN", cfg.DiscordBotToken},
		{"DISCORD_WEBHOOK_URL", cfg.DiscordWebhookURL},
		{"GUILD_ID", cfg.GuildID},
		{"BOARD_CHANNEL_ID", cfg.BoardChannelID},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	for _, id := range []struct{ name, value string }{{"GUILD_ID", cfg.GuildID}, {"BOARD_CHANNEL_ID", cfg.BoardChannelID}} {
		if _, err := strconv.ParseUint(id.value, 10, 64); err != nil {
			return fmt.Errorf("%s must be a numeric snowflake: %w", id.name, err)
		}
	}

	if cfg.MinReactionCount < 1 {
		return errors.New("MIN_REACTION_COUNT must be at least 1")
	}

	if err := validateStore(cfg); err != nil {
		return err
	}

	u, err := url.Parse(cfg.DiscordWebhookURL)
	if err != nil || u.Scheme != "https" || !strings.Contains(u.Path, "/webhooks/") {
		return errors.New("DISCORD_WEBHOOK_URL must be an https Discord webhook URL")
	}

	if cfg.StoreTimeout <= 0 || cfg.LockTimeout <= 0 || cfg.EventTimeout <= 0 {
		return errors.New("STORE_TIMEOUT, LOCK_TIMEOUT and EVENT_TIMEOUT must be positive")
	}
	if cfg.Workers < 1 {
		return errors.New("WORKERS must be at least 1")
	}
	if cfg.QueueSize < 1 {
		return errors.New("QUEUE_SIZE must be at least 1")
	}
	if cfg.PublishRate <= 0 {
		return errors.New("PUBLISH_RATE must be positive")
	}
	if cfg.APIRate <= 0 || cfg.APIBurst < 1 {
		return errors.New("API_RATE must be positive and API_BURST at least 1")
	}

	return nil
}

func validateStore(cfg *Config) error {
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case StoreDriverSQLite:
		if cfg.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverSQLite, cfg.StoreDriver)
	}
	return nil
}
