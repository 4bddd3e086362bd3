// Package config загружает настройки бота из окружения
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Telegram    TelegramConfig
	Database    DatabaseConfig
	FreeConvert FreeConvertConfig
	Worker      WorkerConfig
	Storage     StorageConfig
	Logging     LoggingConfig
}

// TelegramConfig идентификаторы приложения и бота
type TelegramConfig struct {
	AppID          string
	AppHash        string
	BotToken       string
	Debug          bool
	AllowedUserIDs []int64
}

type DatabaseConfig struct {
	Driver string
	Path   string
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
}

type FreeConvertConfig struct {
	BaseURL      string
	PollInterval time.Duration
	JobTimeout   time.Duration
	HTTPTimeout  time.Duration
}

type WorkerConfig struct {
	Workers     int
	QueueSize   int
	MaxFileSize int64
}

type StorageConfig struct {
	DownloadDir string
	StorageDir  string
	KeepOutputs bool
}

type LoggingConfig struct {
	Level string
}

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	allowed, err := parseIDs(os.Getenv("ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_USER_IDS: %w", err)
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			AppID:          os.Getenv("API_ID"),
			AppHash:        os.Getenv("API_HASH"),
			BotToken:       os.Getenv("API_TOKEN"),
			Debug:          getEnvBool("BOT_DEBUG", false),
			AllowedUserIDs: allowed,
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", DriverSQLite),
			Path:   getEnv("DB_PATH", filepath.Join("data", "users.db")),
			User:   os.Getenv("DB_USER"),
			Pass:   os.Getenv("DB_PASS"),
			Host:   getEnv("DB_HOST", "localhost"),
			Port:   getEnv("DB_PORT", "3306"),
			Name:   os.Getenv("DB_NAME"),
		},
		FreeConvert: FreeConvertConfig{
			BaseURL:      getEnv("FREECONVERT_API_URL", "https://api.freeconvert.com/v1"),
			PollInterval: getEnvDuration("POLL_INTERVAL", 5*time.Second),
			JobTimeout:   getEnvDuration("JOB_TIMEOUT", 30*time.Minute),
			HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 10*time.Minute),
		},
		Worker: WorkerConfig{
			Workers:     getEnvInt("WORKERS", 4),
			QueueSize:   getEnvInt("QUEUE_SIZE", 16),
			MaxFileSize: int64(getEnvInt("MAX_FILE_SIZE", 100*1024*1024)),
		},
		Storage: StorageConfig{
			DownloadDir: getEnv("DOWNLOAD_DIR", os.TempDir()),
			StorageDir:  getEnv("STORAGE_DIR", filepath.Join("data", "compressed")),
			KeepOutputs: getEnvBool("KEEP_OUTPUTS", false),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.AppID == "" {
		missing = append(missing, "API_ID")
	}
	if c.Telegram.AppHash == "" {
		missing = append(missing, "API_HASH")
	}
	if c.Telegram.BotToken == "" {
		missing = append(missing, "API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("please set the required environment variables: %s", strings.Join(missing, ", "))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for %s", DriverSQLite)
		}
	case DriverMySQL:
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required for %s", DriverMySQL)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Worker.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Worker.Workers)
	}
	if c.Worker.QueueSize < 0 {
		return fmt.Errorf("QUEUE_SIZE must not be negative, got %d", c.Worker.QueueSize)
	}
	if c.Worker.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.FreeConvert.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return v
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
