package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	apperrors "github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", cfg.BatchSize)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", cfg.PageSize)
	}
	if cfg.MinDelay != 2*time.Second || cfg.MaxDelay != 5*time.Second {
		t.Errorf("delay window = [%v, %v], want [2s, 5s]", cfg.MinDelay, cfg.MaxDelay)
	}
	if cfg.BackoffMax != 70*time.Second {
		t.Errorf("BackoffMax = %v, want 70s", cfg.BackoffMax)
	}
	if cfg.CursorBackend != CursorBackendFile {
		t.Errorf("CursorBackend = %v, want file", cfg.CursorBackend)
	}
	if cfg.AppEnv != AppEnvProduction {
		t.Errorf("AppEnv = %v, want production", cfg.AppEnv)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 50<<20)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
telegram_bot_token: from-file
source_chat: "@history"
destination_chat_id: -100123
batch_size: 5
min_delay: 100ms
cursor_backend: bbolt
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BATCH_SIZE", "7")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.TelegramBotToken != "from-file" {
		t.Errorf("TelegramBotToken = %q, want from-file", cfg.TelegramBotToken)
	}
	if cfg.BatchSize != 7 {
		t.Errorf("BatchSize = %d, want env override 7", cfg.BatchSize)
	}
	if cfg.MinDelay != 100*time.Millisecond {
		t.Errorf("MinDelay = %v, want 100ms", cfg.MinDelay)
	}
	if cfg.DestinationChatID != "-100123" {
		t.Errorf("DestinationChatID = %q, want -100123", cfg.DestinationChatID)
	}
	if cfg.CursorBackend != CursorBackendBbolt {
		t.Errorf("CursorBackend = %v, want bbolt", cfg.CursorBackend)
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, apperrors.ErrMissingBotToken) {
		t.Fatalf("LoadFrom() error = %v, want ErrMissingBotToken", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("CURSOR_BACKEND", "etcd")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Fatalf("LoadFrom() error = %v, want ErrInvalidConfig", err)
	}
}

func validArchiveConfig() Config {
	return Config{
		TelegramAppID:     1,
		TelegramAppHash:   "hash",
		SourceChat:        "@history",
		DestinationChatID: "-100",
		CursorBackend:     CursorBackendFile,
		BatchSize:         20,
		PageSize:          100,
		MinDelay:          time.Second,
		MaxDelay:          2 * time.Second,
		MaxRetryAttempts:  3,
		Timezone:          "UTC",
	}
}

func TestValidateArchive(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"no source", func(c *Config) { c.SourceChat = "" }, apperrors.ErrMissingSource},
		{"no destination", func(c *Config) { c.DestinationChatID = "" }, apperrors.ErrMissingDestination},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, apperrors.ErrInvalidConfig},
		{"page too large", func(c *Config) { c.PageSize = 101 }, apperrors.ErrInvalidConfig},
		{"inverted window", func(c *Config) { c.MinDelay = 3 * time.Second }, apperrors.ErrInvalidConfig},
		{"no retries", func(c *Config) { c.MaxRetryAttempts = 0 }, apperrors.ErrInvalidConfig},
		{"postgres without dsn", func(c *Config) { c.CursorBackend = CursorBackendPostgres }, apperrors.ErrInvalidConfig},
		{"redis without url", func(c *Config) { c.CursorBackend = CursorBackendRedis }, apperrors.ErrInvalidConfig},
		{"commands without operators", func(c *Config) { c.BotCommands = true }, apperrors.ErrInvalidConfig},
		{"commands with operators", func(c *Config) { c.BotCommands, c.AllowedUsers = true, []int64{42} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validArchiveConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateArchive()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("ValidateArchive() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("ValidateArchive() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateArchiveBadTimezone(t *testing.T) {
	cfg := validArchiveConfig()
	cfg.Timezone = "Mars/Olympus"
	if err := cfg.ValidateArchive(); err == nil {
		t.Fatal("ValidateArchive() accepted an unknown time zone")
	}
}

func TestParseCursorBackend(t *testing.T) {
	for _, name := range CursorBackendNames() {
		got, err := ParseCursorBackend(name)
		if err != nil {
			t.Fatalf("ParseCursorBackend(%q) error = %v", name, err)
		}
		if got.String() != name {
			t.Errorf("round trip %q -> %q", name, got.String())
		}
	}
	if _, err := ParseCursorBackend("etcd"); !errors.Is(err, ErrInvalidCursorBackend) {
		t.Errorf("ParseCursorBackend(etcd) error = %v, want ErrInvalidCursorBackend", err)
	}
}

func TestParseAllowedUsers(t *testing.T) {
	tests := []struct {
		in   string
		want []int64
	}{
		{"", []int64{}},
		{"42", []int64{42}},
		{" 1, 2 ,,x,3", []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAllowedUsers(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseAllowedUsers(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadAllowedUsersFromEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ALLOWED_USERS", "7,8")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if !slices.Equal(cfg.AllowedUsers, []int64{7, 8}) {
		t.Errorf("AllowedUsers = %v, want [7 8]", cfg.AllowedUsers)
	}
}
