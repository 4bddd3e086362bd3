package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"tg-compress-bot/internal/config"
)

var ErrRecordNotFound = errors.New("record not found")

// InitDB открывает базу, проверяет соединение и применяет миграции
func InitDB(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*sql.DB, error) {
	dialect, ok := DialectFor(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка соединения с ретраями
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := retry(3, 2*time.Second, func() error {
		return db.PingContext(pingCtx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	migrator := NewMigrator(db, dialect, logger)
	if err := migrator.Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	logger.Info().Str("driver", cfg.Driver).Msg("Database ready")

	return db, nil
}

func buildDSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create db directory %s: %w", dir, err)
			}
		}
		return cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000", nil
	case config.DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&timeout=5s",
			cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name), nil
	}
	return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
