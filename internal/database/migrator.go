package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type Migrator struct {
	db      *sql.DB
	dialect Dialect
	logger  zerolog.Logger
}

func NewMigrator(db *sql.DB, dialect Dialect, logger zerolog.Logger) *Migrator {
	return &Migrator{db: db, dialect: dialect, logger: logger}
}

func (m *Migrator) Run(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to init migrations table: %w", err)
	}

	// Получаем список примененных миграций
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	// Применяем миграции по очереди
	for _, migration := range m.dialect.Migrations {
		if _, ok := applied[migration.Name]; ok {
			continue
		}
		if err := m.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
	}

	return nil
}

func (m *Migrator) applyMigration(ctx context.Context, migration Migration) error {
	m.logger.Info().Str("migration", migration.Name).Msg("Applying migration")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, cmd := range migration.Commands {
		if _, err := tx.ExecContext(ctx, cmd); err != nil {
			return fmt.Errorf("failed to execute command:\n%s\nError: %w", cmd, err)
		}
	}

	// Фиксируем миграцию
	if _, err := tx.ExecContext(
		ctx,
		"INSERT INTO migrations (name) VALUES (?)",
		migration.Name,
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, m.dialect.MigrationsTable)
	return err
}

func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]struct{}, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT name FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = struct{}{}
	}

	return applied, rows.Err()
}
