package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

type Config struct {
	// Destination bot
	TelegramBotToken string `koanf:"telegram_bot_token"`
	TelegramAPIURL   string `koanf:"telegram_api_url"`

	// Source account (MTProto)
	TelegramAppID    int    `koanf:"telegram_app_id"`
	TelegramAppHash  string `koanf:"telegram_app_hash"`
	TelegramPhone    string `koanf:"telegram_phone"`
	TelegramPassword string `koanf:"telegram_password"`
	SessionPath      string `koanf:"session_path"`

	SourceChat        string `koanf:"source_chat"`
	DestinationChatID string `koanf:"destination_chat_id"`

	// Cursor persistence
	StoragePath   string        `koanf:"storage_path"`
	CursorBackend CursorBackend `koanf:"cursor_backend"`
	DatabaseURL   string        `koanf:"database_url"`
	RedisURL      string        `koanf:"redis_url"`

	// Archive loop
	BatchSize        int           `koanf:"batch_size"`
	PageSize         int           `koanf:"page_size"`
	MinDelay         time.Duration `koanf:"min_delay"`
	MaxDelay         time.Duration `koanf:"max_delay"`
	MaxRetryAttempts int           `koanf:"max_retry_attempts"`
	BackoffBase      time.Duration `koanf:"backoff_base"`
	BackoffMax       time.Duration `koanf:"backoff_max"`
	ThrottlePadding  time.Duration `koanf:"throttle_padding"`
	MaxUploadBytes   int64         `koanf:"max_upload_bytes"`
	Timezone         string        `koanf:"timezone"`
	SenderFallback   string        `koanf:"sender_fallback"`
	ScheduleInterval time.Duration `koanf:"schedule_interval"`

	// Video uploader
	ManifestFile  string        `koanf:"manifest_file"`
	DownloadDir   string        `koanf:"download_dir"`
	UploadTimeout time.Duration `koanf:"upload_timeout"`
	ReportDir     string        `koanf:"report_dir"`

	// Operator commands
	BotCommands  bool    `koanf:"bot_commands"`
	AllowedUsers []int64 `koanf:"-"`

	HTTPPort        string `koanf:"http_port"`
	PublicURL       string `koanf:"public_url"`
	LogFile         string `koanf:"log_file"`
	LogLevel        string `koanf:"log_level"`
	OTelServiceName string `koanf:"otel_service_name"`
	AppEnv          AppEnv `koanf:"app_env"`
}

var defaultConfigFiles = []string{
	"config.yaml",
	"config.yml",
	"config.json",
	"config.toml",
}

var defaults = map[string]any{
	"telegram_api_url":   "https://api.telegram.org",
	"session_path":       "./data/session.json",
	"storage_path":       "./data",
	"cursor_backend":     "file",
	"batch_size":         20,
	"page_size":          100,
	"min_delay":          "2s",
	"max_delay":          "5s",
	"max_retry_attempts": 5,
	"backoff_base":       "2s",
	"backoff_max":        "70s",
	"throttle_padding":   "1s",
	"max_upload_bytes":   50 << 20,
	"timezone":           "UTC",
	"sender_fallback":    "unknown",
	"schedule_interval":  "0s",
	"manifest_file":      "manifest.txt",
	"download_dir":       "videos",
	"upload_timeout":     "10m",
	"report_dir":         "logs",
	"bot_commands":       false,
	"http_port":          "8080",
	"log_file":           "archive.log",
	"log_level":          "info",
	"otel_service_name":  "tg-chat-archive",
	"app_env":            "production",
}

// Load reads the first config file found in the working directory and then
// applies environment variables on top of it.
func Load() (*Config, error) {
	return LoadFrom(defaultConfigFiles...)
}

// LoadFrom is Load with an explicit list of candidate config files.
func LoadFrom(configFiles ...string) (*Config, error) {
	k := koanf.New(".")

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values:
	// TELEGRAM_BOT_TOKEN -> telegram_bot_token
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	if env, err := ParseAppEnv(k.String("app_env")); err == nil {
		cfg.AppEnv = env
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	// allowed_users is a comma-separated string in the environment and a
	// list in config files.
	switch v := k.Get("allowed_users").(type) {
	case string:
		cfg.AllowedUsers = ParseAllowedUsers(v)
	case []any:
		cfg.AllowedUsers = lo.FilterMap(v, func(item any, _ int) (int64, bool) {
			switch val := item.(type) {
			case int64:
				return val, true
			case int:
				return int64(val), true
			case float64:
				return int64(val), true
			case string:
				id, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
				return id, err == nil
			default:
				return 0, false
			}
		})
	}

	backend, err := ParseCursorBackend(k.String("cursor_backend"))
	if err != nil {
		return nil, oops.With("cursor_backend", k.String("cursor_backend")).Wrap(errors.ErrInvalidConfig)
	}
	cfg.CursorBackend = backend

	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}

	return &cfg, nil
}

// ValidateArchive checks the settings the archive loop cannot run without.
func (c *Config) ValidateArchive() error {
	switch {
	case c.SourceChat == "":
		return errors.ErrMissingSource
	case c.DestinationChatID == "":
		return errors.ErrMissingDestination
	case c.TelegramAppID == 0 || c.TelegramAppHash == "":
		return oops.With("field", "telegram_app_id/telegram_app_hash").Wrap(errors.ErrInvalidConfig)
	case c.BatchSize <= 0:
		return oops.With("batch_size", c.BatchSize).Wrap(errors.ErrInvalidConfig)
	case c.PageSize <= 0 || c.PageSize > 100:
		return oops.With("page_size", c.PageSize, "allowed", "1..100").Wrap(errors.ErrInvalidConfig)
	case c.MinDelay < 0 || c.MaxDelay < c.MinDelay:
		return oops.With("min_delay", c.MinDelay, "max_delay", c.MaxDelay).Wrap(errors.ErrInvalidConfig)
	case c.MaxRetryAttempts <= 0:
		return oops.With("max_retry_attempts", c.MaxRetryAttempts).Wrap(errors.ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.BotCommands && len(c.AllowedUsers) == 0 {
		return oops.With("field", "allowed_users", "bot_commands", true).Wrap(errors.ErrInvalidConfig)
	}
	switch c.CursorBackend {
	case CursorBackendPostgres:
		if c.DatabaseURL == "" {
			return oops.With("field", "database_url", "cursor_backend", c.CursorBackend).Wrap(errors.ErrInvalidConfig)
		}
	case CursorBackendRedis:
		if c.RedisURL == "" {
			return oops.With("field", "redis_url", "cursor_backend", c.CursorBackend).Wrap(errors.ErrInvalidConfig)
		}
	}
	return nil
}

// ValidateUpload checks the settings the video uploader needs.
func (c *Config) ValidateUpload() error {
	if c.DestinationChatID == "" {
		return errors.ErrMissingDestination
	}
	if c.UploadTimeout <= 0 {
		return oops.With("upload_timeout", c.UploadTimeout).Wrap(errors.ErrInvalidConfig)
	}
	return nil
}

// ParseAllowedUsers parses comma-separated user IDs, skipping malformed ones.
func ParseAllowedUsers(s string) []int64 {
	return lo.FilterMap(strings.Split(s, ","), func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		id, err := strconv.ParseInt(part, 10, 64)
		return id, err == nil
	})
}

// Location returns the time zone archived timestamps are rendered in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, oops.With("timezone", c.Timezone).Wrap(err)
	}
	return loc, nil
}
